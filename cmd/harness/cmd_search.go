package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opsharness/harness/internal/emitter"
	"github.com/opsharness/harness/internal/fetch"
	"github.com/opsharness/harness/internal/filter"
	"github.com/opsharness/harness/internal/search"
	"github.com/opsharness/harness/internal/session"
)

type searchOptions struct {
	profile     string
	region      string
	output      string
	concurrency int
	owners      string
}

// criterion is one "search <kind> <criterion> <values>" leaf command.
type criterion struct {
	use     string
	short   string
	example string
	build   func(arg string) (fetch.Fetcher, error)
}

func newSearchCmd(a *app) *cobra.Command {
	o := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search AWS resources across profiles and regions",
		Long: `Search AWS resources across profiles and regions.

Each (profile, region) session prints its own table or JSON document.
Use "all" for --profile or --region to sweep every configured profile or
every enabled region. Sessions that cannot be opened or queried are
skipped and reported in the summary on stderr.`,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&o.profile, "profile", "p", "default", `AWS profile, or "all"`)
	pf.StringVarP(&o.region, "region", "r", "", `AWS region, or "all" (default aws.region from config, else eu-central-1)`)
	pf.StringVarP(&o.output, "output", "o", emitter.FormatTable, "Output format: table, json")
	pf.IntVar(&o.concurrency, "concurrency", 0, "Sessions fetched in parallel (default aws.concurrency from config)")

	cmd.AddCommand(
		newKindCmd(a, o, "ec2", "Search EC2 instances", []criterion{
			{use: "ids", short: "Instances by id", example: "i-0abc,i-0def", build: list(fetch.EC2ByIDs)},
			{use: "names", short: "Instances by Name tag", example: "web-1,web-2", build: list(fetch.EC2ByNames)},
			{use: "tag", short: "Instances by tag", example: "Env=prod,staging", build: ec2Tag},
			{use: "private-ips", short: "Instances by private IP", example: "10.0.1.5,10.0.1.6", build: list(fetch.EC2ByPrivateIPs)},
			{use: "public-ips", short: "Instances by public IP", example: "203.0.113.10", build: list(fetch.EC2ByPublicIPs)},
		}),
		newKindCmd(a, o, "eni", "Search network interfaces", []criterion{
			{use: "private-ips", short: "Interfaces by private IP", example: "10.0.1.5", build: list(fetch.ENIByPrivateIPs)},
			{use: "public-ips", short: "Interfaces by public IP", example: "203.0.113.10", build: list(fetch.ENIByPublicIPs)},
		}),
		newKindCmd(a, o, "elb", "Search load balancers", []criterion{
			{use: "arns", short: "Load balancers by ARN", example: "arn:aws:elasticloadbalancing:...", build: list(fetch.ELBByARNs)},
			{use: "names", short: "Load balancers by name", example: "api-prod,api-stag", build: list(fetch.ELBByNames)},
			{use: "dns-names", short: "Load balancers by DNS name", example: "api-123.eu-central-1.elb.amazonaws.com", build: list(fetch.ELBByDNSNames)},
		}),
		newAMICmd(a, o),
	)
	return cmd
}

func newAMICmd(a *app, o *searchOptions) *cobra.Command {
	cmd := newKindCmd(a, o, "ami", "Search machine images", []criterion{
		{use: "ids", short: "Images by id", example: "ami-0abc", build: list(fetch.AMIByIDs)},
		{
			use:     "names",
			short:   "Images by name pattern (* and ? wildcards)",
			example: "my-app-*",
			build: func(arg string) (fetch.Fetcher, error) {
				patterns, err := values(arg)
				if err != nil {
					return fetch.Fetcher{}, err
				}
				return fetch.AMIByNames(filter.SplitList(o.owners), patterns), nil
			},
		},
		{
			use:     "alias",
			short:   "Images by alias (" + strings.Join(fetch.ImageAliases(), ", ") + ")",
			example: "amzn2-x86_64",
			build: func(arg string) (fetch.Fetcher, error) {
				aliases, err := values(arg)
				if err != nil {
					return fetch.Fetcher{}, err
				}
				return fetch.AMIByAliases(aliases)
			},
		},
	})
	cmd.PersistentFlags().StringVar(&o.owners, "owners", "self", "Image owners for name lookups (account ids, self, amazon)")
	return cmd
}

func newKindCmd(a *app, o *searchOptions, kind, short string, criteria []criterion) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind,
		Short: short,
	}
	for _, c := range criteria {
		cmd.AddCommand(&cobra.Command{
			Use:     c.use + " <values>",
			Short:   c.short,
			Example: fmt.Sprintf("  harness search %s %s %s", kind, c.use, c.example),
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				f, err := c.build(args[0])
				if err != nil {
					return err
				}
				return a.runSearch(cmd, o, f)
			},
		})
	}
	return cmd
}

func list(fn func([]string) fetch.Fetcher) func(string) (fetch.Fetcher, error) {
	return func(arg string) (fetch.Fetcher, error) {
		v, err := values(arg)
		if err != nil {
			return fetch.Fetcher{}, err
		}
		return fn(v), nil
	}
}

func values(arg string) ([]string, error) {
	v := filter.SplitList(arg)
	if len(v) == 0 {
		return nil, errors.New("no values given")
	}
	return v, nil
}

func ec2Tag(arg string) (fetch.Fetcher, error) {
	key, vals, err := filter.ParseTag(arg)
	if err != nil {
		return fetch.Fetcher{}, err
	}
	return fetch.EC2ByTag(key, vals), nil
}

func (a *app) runSearch(cmd *cobra.Command, o *searchOptions, f fetch.Fetcher) error {
	out, err := emitter.New(o.output, a.stdout)
	if err != nil {
		return err
	}
	metrics, err := emitter.NewPrometheusEmitter()
	if err != nil {
		return err
	}
	emit := emitter.NewMultiEmitter(out, metrics)
	defer emit.Close()

	scope := session.Scope{Profile: o.profile, Region: o.region}
	if scope.Region == "" {
		scope.Region = a.cfg.AWS.Region
	}
	concurrency := o.concurrency
	if concurrency == 0 {
		concurrency = a.cfg.AWS.Concurrency
	}

	s := &search.Searcher{
		Sessions:    a.enumerator(),
		Emitter:     emit,
		Telemetry:   a.telemetry,
		Concurrency: concurrency,
		SweepID:     uuid.NewString(),
	}

	logger := log.With().
		Str("sweep_id", s.SweepID).
		Str("profile", scope.Profile).
		Str("region", scope.Region).
		Str("fetcher", f.Name).
		Logger()
	logger.Debug().Int("concurrency", concurrency).Msg("search started")

	summary, err := s.Search(cmd.Context(), scope, f)
	logger.Info().Object("sessions", summary).Msg(summary.String())
	return err
}
