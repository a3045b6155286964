// Package fetch issues the single describe call behind each search.
//
// A fetch either returns a raw response tagged with its resource kind, or
// an error. An instance-id lookup the provider rejects as unknown is not an
// error: it yields an empty response, so callers can tell "found nothing"
// apart from "query failed".
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/opsharness/harness/internal/filter"
	"github.com/opsharness/harness/pkg/resource"
)

// Fetcher is a describe call with its criteria already bound.
type Fetcher struct {
	// Name identifies the lookup in logs and spans, e.g. "ec2.ids".
	Name string
	Kind resource.Kind
	fn   func(ctx context.Context, c Clients) (resource.Raw, error)
}

// Fetch runs the lookup against one session's clients.
func (f Fetcher) Fetch(ctx context.Context, c Clients) (resource.Raw, error) {
	if f.fn == nil {
		return resource.Raw{}, fmt.Errorf("fetcher %q has no lookup", f.Name)
	}
	return f.fn(ctx, c)
}

func newFetcher(name string, kind resource.Kind, fn func(context.Context, Clients) (resource.Raw, error)) Fetcher {
	return Fetcher{Name: name, Kind: kind, fn: fn}
}

var notFoundCodes = map[string]bool{
	"InvalidInstanceID.NotFound":  true,
	"InvalidInstanceID.Malformed": true,
}

func isInvalidInstanceID(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return notFoundCodes[apiErr.ErrorCode()]
	}
	return false
}

// EC2ByIDs looks up instances by id.
func EC2ByIDs(ids []string) Fetcher {
	return newFetcher("ec2.ids", resource.KindEC2Instance, func(ctx context.Context, c Clients) (resource.Raw, error) {
		raw, err := describeInstances(ctx, c, &ec2.DescribeInstancesInput{InstanceIds: ids})
		if err != nil && isInvalidInstanceID(err) {
			return resource.Raw{Kind: resource.KindEC2Instance}, nil
		}
		return raw, err
	})
}

// EC2ByTag looks up instances whose tag key has any of values.
func EC2ByTag(key string, values []string) Fetcher {
	return newFetcher("ec2.tag", resource.KindEC2Instance, func(ctx context.Context, c Clients) (resource.Raw, error) {
		return describeInstances(ctx, c, &ec2.DescribeInstancesInput{
			Filters: []ec2types.Filter{filter.Tag(key, values)},
		})
	})
}

// EC2ByNames looks up instances by their Name tag.
func EC2ByNames(names []string) Fetcher {
	f := EC2ByTag("Name", names)
	f.Name = "ec2.names"
	return f
}

// EC2ByPrivateIPs looks up instances by private IP address.
func EC2ByPrivateIPs(ips []string) Fetcher {
	return newFetcher("ec2.private_ips", resource.KindEC2Instance, func(ctx context.Context, c Clients) (resource.Raw, error) {
		return describeInstances(ctx, c, &ec2.DescribeInstancesInput{
			Filters: []ec2types.Filter{filter.EC2("private-ip-address", ips)},
		})
	})
}

// EC2ByPublicIPs looks up instances by public IP address.
func EC2ByPublicIPs(ips []string) Fetcher {
	return newFetcher("ec2.public_ips", resource.KindEC2Instance, func(ctx context.Context, c Clients) (resource.Raw, error) {
		return describeInstances(ctx, c, &ec2.DescribeInstancesInput{
			Filters: []ec2types.Filter{filter.EC2("ip-address", ips)},
		})
	})
}

func describeInstances(ctx context.Context, c Clients, input *ec2.DescribeInstancesInput) (resource.Raw, error) {
	if c.EC2 == nil {
		return resource.Raw{}, errors.New("no ec2 client")
	}
	output, err := c.EC2.DescribeInstances(ctx, input)
	if err != nil {
		return resource.Raw{}, fmt.Errorf("describe instances: %w", err)
	}
	return resource.Raw{Kind: resource.KindEC2Instance, Reservations: output.Reservations}, nil
}

// ENIByPrivateIPs looks up network interfaces by private IP address.
func ENIByPrivateIPs(ips []string) Fetcher {
	return newFetcher("eni.private_ips", resource.KindNetworkInterface, func(ctx context.Context, c Clients) (resource.Raw, error) {
		return describeNetworkInterfaces(ctx, c, filter.EC2("addresses.private-ip-address", ips))
	})
}

// ENIByPublicIPs looks up network interfaces by associated public IP.
func ENIByPublicIPs(ips []string) Fetcher {
	return newFetcher("eni.public_ips", resource.KindNetworkInterface, func(ctx context.Context, c Clients) (resource.Raw, error) {
		return describeNetworkInterfaces(ctx, c, filter.EC2("addresses.association.public-ip", ips))
	})
}

func describeNetworkInterfaces(ctx context.Context, c Clients, f ec2types.Filter) (resource.Raw, error) {
	if c.EC2 == nil {
		return resource.Raw{}, errors.New("no ec2 client")
	}
	output, err := c.EC2.DescribeNetworkInterfaces(ctx, &ec2.DescribeNetworkInterfacesInput{
		Filters: []ec2types.Filter{f},
	})
	if err != nil {
		return resource.Raw{}, fmt.Errorf("describe network interfaces: %w", err)
	}
	return resource.Raw{Kind: resource.KindNetworkInterface, NetworkInterfaces: output.NetworkInterfaces}, nil
}
