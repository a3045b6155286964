package fetch

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/opsharness/harness/internal/filter"
	"github.com/opsharness/harness/pkg/resource"
)

// ImageAlias is a well-known AMI family.
type ImageAlias struct {
	Owners      []string
	NamePattern string
}

var imageAliases = map[string]ImageAlias{
	"amzn2-x86_64":          {Owners: []string{"amazon"}, NamePattern: "amzn2-ami-hvm-*-x86_64-gp2"},
	"amzn2-arm64":           {Owners: []string{"amazon"}, NamePattern: "amzn2-ami-hvm-*-arm64-gp2"},
	"amzn2-kernel-5-x86_64": {Owners: []string{"amazon"}, NamePattern: "amzn2-ami-kernel-5.10-hvm-*-x86_64-gp2"},
	"amzn2-kernel-5-arm64":  {Owners: []string{"amazon"}, NamePattern: "amzn2-ami-kernel-5.10-hvm-*-arm64-gp2"},
}

// ErrUnknownAlias is returned for an AMI alias not in the alias table.
var ErrUnknownAlias = errors.New("unknown image alias")

// ImageAliases returns the known alias names, sorted.
func ImageAliases() []string {
	names := make([]string, 0, len(imageAliases))
	for name := range imageAliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AMIByIDs looks up images by id.
func AMIByIDs(ids []string) Fetcher {
	return newFetcher("ami.ids", resource.KindImage, func(ctx context.Context, c Clients) (resource.Raw, error) {
		return describeImages(ctx, c, &ec2.DescribeImagesInput{ImageIds: ids})
	})
}

// AMIByNames looks up images owned by owners whose name matches any of the
// patterns. Patterns may use the API's * and ? wildcards.
func AMIByNames(owners, patterns []string) Fetcher {
	return newFetcher("ami.names", resource.KindImage, func(ctx context.Context, c Clients) (resource.Raw, error) {
		return describeImages(ctx, c, &ec2.DescribeImagesInput{
			Owners:  owners,
			Filters: []ec2types.Filter{filter.EC2("name", patterns)},
		})
	})
}

// AMIByAliases resolves aliases from the alias table into one name lookup.
func AMIByAliases(aliases []string) (Fetcher, error) {
	var owners, patterns []string
	seen := make(map[string]bool)
	for _, name := range aliases {
		alias, ok := imageAliases[name]
		if !ok {
			return Fetcher{}, fmt.Errorf("%w: %q", ErrUnknownAlias, name)
		}
		for _, o := range alias.Owners {
			if !seen[o] {
				seen[o] = true
				owners = append(owners, o)
			}
		}
		patterns = append(patterns, alias.NamePattern)
	}

	f := AMIByNames(owners, patterns)
	f.Name = "ami.alias"
	return f, nil
}

func describeImages(ctx context.Context, c Clients, input *ec2.DescribeImagesInput) (resource.Raw, error) {
	if c.EC2 == nil {
		return resource.Raw{}, errors.New("no ec2 client")
	}
	output, err := c.EC2.DescribeImages(ctx, input)
	if err != nil {
		return resource.Raw{}, fmt.Errorf("describe images: %w", err)
	}
	return resource.Raw{Kind: resource.KindImage, Images: output.Images}, nil
}
