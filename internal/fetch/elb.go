package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/opsharness/harness/internal/filter"
	"github.com/opsharness/harness/pkg/resource"
)

// ELBByARNs looks up load balancers by ARN.
func ELBByARNs(arns []string) Fetcher {
	return newFetcher("elb.arns", resource.KindLoadBalancer, func(ctx context.Context, c Clients) (resource.Raw, error) {
		return describeLoadBalancers(ctx, c, &elasticloadbalancingv2.DescribeLoadBalancersInput{LoadBalancerArns: arns})
	})
}

// ELBByNames looks up load balancers by name.
func ELBByNames(names []string) Fetcher {
	return newFetcher("elb.names", resource.KindLoadBalancer, func(ctx context.Context, c Clients) (resource.Raw, error) {
		return describeLoadBalancers(ctx, c, &elasticloadbalancingv2.DescribeLoadBalancersInput{Names: names})
	})
}

// ELBByDNSNames lists every load balancer and keeps those whose DNS name
// matches exactly. The API has no DNS name filter.
func ELBByDNSNames(dnsNames []string) Fetcher {
	wanted := filter.NewSet(dnsNames)
	return newFetcher("elb.dns_names", resource.KindLoadBalancer, func(ctx context.Context, c Clients) (resource.Raw, error) {
		raw, err := describeLoadBalancers(ctx, c, &elasticloadbalancingv2.DescribeLoadBalancersInput{})
		if err != nil {
			return raw, err
		}
		raw.LoadBalancers = matchDNSNames(raw.LoadBalancers, wanted)
		return raw, nil
	})
}

func matchDNSNames(lbs []elbv2types.LoadBalancer, wanted filter.Set) []elbv2types.LoadBalancer {
	matched := make([]elbv2types.LoadBalancer, 0, len(wanted))
	for _, lb := range lbs {
		if wanted.Has(aws.ToString(lb.DNSName)) {
			matched = append(matched, lb)
		}
	}
	return matched
}

func describeLoadBalancers(ctx context.Context, c Clients, input *elasticloadbalancingv2.DescribeLoadBalancersInput) (resource.Raw, error) {
	if c.ELB == nil {
		return resource.Raw{}, errors.New("no elb client")
	}
	output, err := c.ELB.DescribeLoadBalancers(ctx, input)
	if err != nil {
		return resource.Raw{}, fmt.Errorf("describe load balancers: %w", err)
	}
	return resource.Raw{Kind: resource.KindLoadBalancer, LoadBalancers: output.LoadBalancers}, nil
}
