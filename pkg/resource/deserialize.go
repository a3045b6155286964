package resource

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/rs/zerolog/log"
)

// Raw is a provider response tagged with the kind of resource it holds.
// Fetchers set Kind and populate exactly one of the slices.
type Raw struct {
	Kind              Kind                        `json:"kind"`
	Reservations      []ec2types.Reservation      `json:"reservations,omitempty"`
	NetworkInterfaces []ec2types.NetworkInterface `json:"network_interfaces,omitempty"`
	LoadBalancers     []elbv2types.LoadBalancer   `json:"load_balancers,omitempty"`
	Images            []ec2types.Image            `json:"images,omitempty"`
}

// Deserialize maps a raw response to records. Unknown kinds are logged
// and produce no records.
func Deserialize(raw Raw) []Record {
	switch raw.Kind {
	case KindEC2Instance:
		return FromReservations(raw.Reservations)
	case KindNetworkInterface:
		return FromNetworkInterfaces(raw.NetworkInterfaces)
	case KindLoadBalancer:
		return FromLoadBalancers(raw.LoadBalancers)
	case KindImage:
		return FromImages(raw.Images)
	default:
		log.Warn().Interface("payload", raw).Msg("unrecognized response shape")
		return nil
	}
}

// FromReservations flattens the instances of every reservation into records.
func FromReservations(reservations []ec2types.Reservation) []Record {
	var records []Record
	for _, reservation := range reservations {
		for _, instance := range reservation.Instances {
			records = append(records, FromInstance(instance))
		}
	}
	return records
}

// FromInstance converts one EC2 instance.
func FromInstance(instance ec2types.Instance) Record {
	var state, az *string
	if instance.State != nil {
		state = enum(instance.State.Name)
	}
	if instance.Placement != nil {
		az = clone(instance.Placement.AvailabilityZone)
	}
	return newRecord(KindEC2Instance,
		state,
		nameTag(instance.Tags),
		clone(instance.InstanceId),
		enum(instance.InstanceType),
		az,
		clone(instance.PrivateIpAddress),
		clone(instance.PublicIpAddress),
	)
}

// FromNetworkInterfaces converts ENIs.
func FromNetworkInterfaces(enis []ec2types.NetworkInterface) []Record {
	records := make([]Record, 0, len(enis))
	for _, eni := range enis {
		var publicIP, instanceID *string
		if eni.Association != nil {
			publicIP = clone(eni.Association.PublicIp)
		}
		if eni.Attachment != nil {
			instanceID = clone(eni.Attachment.InstanceId)
		}
		records = append(records, newRecord(KindNetworkInterface,
			clone(eni.PrivateIpAddress),
			publicIP,
			clone(eni.NetworkInterfaceId),
			enum(eni.InterfaceType),
			instanceID,
			clone(eni.AvailabilityZone),
			enum(eni.Status),
		))
	}
	return records
}

// FromLoadBalancers converts elbv2 load balancers.
func FromLoadBalancers(lbs []elbv2types.LoadBalancer) []Record {
	records := make([]Record, 0, len(lbs))
	for _, lb := range lbs {
		records = append(records, newRecord(KindLoadBalancer,
			clone(lb.LoadBalancerName),
			clone(lb.DNSName),
			enum(lb.Type),
			enum(lb.Scheme),
			clone(lb.LoadBalancerArn),
		))
	}
	return records
}

// FromImages converts AMIs.
func FromImages(images []ec2types.Image) []Record {
	records := make([]Record, 0, len(images))
	for _, img := range images {
		records = append(records, newRecord(KindImage,
			clone(img.ImageId),
			clone(img.Name),
			clone(img.CreationDate),
		))
	}
	return records
}

// nameTag returns the value of the "Name" tag, or nil when there is none.
func nameTag(tags []ec2types.Tag) *string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			return clone(tag.Value)
		}
	}
	return nil
}

func clone(s *string) *string {
	if s == nil {
		return nil
	}
	return aws.String(*s)
}

// enum converts an SDK string enum, treating the zero value as absent.
func enum[T ~string](v T) *string {
	if v == "" {
		return nil
	}
	return aws.String(string(v))
}
