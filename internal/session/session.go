// Package session expands a profile/region scope into AWS sessions.
//
// Expansion happens in two stages. Expand resolves the "all" wildcards into
// concrete (profile, region) targets; Enumerate opens one session per
// target. Neither stage fails as a whole: a profile whose regions cannot be
// listed, or a pair whose session cannot be built, becomes a skip marker
// carrying the error.
package session

import (
	"context"
	"fmt"
	"iter"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/rs/zerolog/log"

	"github.com/opsharness/harness/internal/fetch"
)

// All selects every profile or every region.
const All = "all"

// BootstrapRegion is where region discovery runs.
const BootstrapRegion = "us-east-1"

// Scope is a profile selector and a region selector, either may be All.
type Scope struct {
	Profile string
	Region  string
}

// Target is one concrete (profile, region) pair. A non-nil Err marks a
// pair that could not be resolved and must be skipped.
type Target struct {
	Profile string
	Region  string
	Err     error
}

// Session is a set of clients bound to one profile and one region.
type Session struct {
	Profile string
	Region  string
	Clients fetch.Clients
	Regions RegionsAPI
}

// Candidate is the outcome of opening one target: a session, or a skip
// marker with Err set.
type Candidate struct {
	Target
	Session *Session
}

// Skipped reports whether the candidate has no usable session.
func (c Candidate) Skipped() bool {
	return c.Session == nil
}

// RegionsAPI defines the region directory call used for discovery.
type RegionsAPI interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// ProfileSource lists the configured credential profiles.
type ProfileSource interface {
	Profiles() ([]string, error)
}

// Opener builds a session for one profile and region.
type Opener interface {
	Open(ctx context.Context, profile, region string) (*Session, error)
}

// Enumerator expands scopes into sessions.
type Enumerator struct {
	Profiles ProfileSource
	Opener   Opener
}

// New creates an Enumerator backed by the shared AWS files and the SDK.
func New() *Enumerator {
	return &Enumerator{
		Profiles: SharedFileProfiles{},
		Opener:   AWSOpener{},
	}
}

// Expand resolves wildcards in scope into concrete targets.
func (e *Enumerator) Expand(ctx context.Context, scope Scope) []Target {
	if scope.Profile != All {
		return e.expandRegions(ctx, scope.Profile, scope.Region)
	}

	profiles, err := e.Profiles.Profiles()
	if err != nil {
		return []Target{{Profile: All, Region: scope.Region, Err: fmt.Errorf("list profiles: %w", err)}}
	}

	var targets []Target
	for _, p := range profiles {
		targets = append(targets, e.expandRegions(ctx, p, scope.Region)...)
	}
	return targets
}

func (e *Enumerator) expandRegions(ctx context.Context, profile, region string) []Target {
	if region != All {
		return []Target{{Profile: profile, Region: region}}
	}

	regions, err := e.regions(ctx, profile)
	if err != nil {
		log.Debug().Err(err).Str("profile", profile).Msg("region discovery failed")
		return []Target{{Profile: profile, Region: All, Err: err}}
	}

	targets := make([]Target, 0, len(regions))
	for _, r := range regions {
		targets = append(targets, Target{Profile: profile, Region: r})
	}
	return targets
}

// regions lists the regions enabled for profile.
func (e *Enumerator) regions(ctx context.Context, profile string) ([]string, error) {
	s, err := e.Opener.Open(ctx, profile, BootstrapRegion)
	if err != nil {
		return nil, fmt.Errorf("open bootstrap session: %w", err)
	}
	if s.Regions == nil {
		return nil, fmt.Errorf("bootstrap session for %q has no region client", profile)
	}

	output, err := s.Regions.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		Filters: []ec2types.Filter{{
			Name:   aws.String("opt-in-status"),
			Values: []string{"opt-in-not-required", "opted-in"},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("describe regions: %w", err)
	}

	regions := make([]string, 0, len(output.Regions))
	for _, r := range output.Regions {
		if name := aws.ToString(r.RegionName); name != "" {
			regions = append(regions, name)
		}
	}
	return regions, nil
}

// Enumerate expands scope and lazily opens a session per target.
func (e *Enumerator) Enumerate(ctx context.Context, scope Scope) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, t := range e.Expand(ctx, scope) {
			if !yield(e.open(ctx, t)) {
				return
			}
		}
	}
}

func (e *Enumerator) open(ctx context.Context, t Target) Candidate {
	if t.Err != nil {
		return Candidate{Target: t}
	}
	s, err := e.Opener.Open(ctx, t.Profile, t.Region)
	if err != nil {
		t.Err = fmt.Errorf("open session: %w", err)
		return Candidate{Target: t}
	}
	return Candidate{Target: t, Session: s}
}

// AWSOpener builds sessions from the SDK's default credential chain.
type AWSOpener struct{}

// Open loads the AWS config for profile and region and creates the clients.
func (AWSOpener) Open(ctx context.Context, profile, region string) (*Session, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if useProfile(profile) {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	ec2Client := ec2.NewFromConfig(cfg)
	return &Session{
		Profile: profile,
		Region:  region,
		Clients: fetch.Clients{
			EC2: ec2Client,
			ELB: elasticloadbalancingv2.NewFromConfig(cfg),
		},
		Regions: ec2Client,
	}, nil
}

// useProfile reports whether the profile must be named explicitly. The
// default profile is left to the SDK so environment credentials keep
// working without a shared credentials file.
func useProfile(profile string) bool {
	if profile == "" {
		return false
	}
	if profile == "default" && os.Getenv("AWS_PROFILE") == "" {
		return false
	}
	return true
}
