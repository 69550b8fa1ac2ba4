// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package mapper

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

func init() {
	Register(&rewardsMapper{})
}

// rewardsMapper imports mobile reward shares. Each frame carries a reward
// period plus a oneof payload naming the rewarded party, and each variant
// persists to its own table. Variants this build does not know about
// decode cleanly and map to zero rows; a share with no variant at all is
// a per-record decode error.
type rewardsMapper struct{}

// RewardShare is one decoded reward share. Exactly one of the variant
// pointers is non-nil, except for unknown variants where all are nil.
type RewardShare struct {
	StartPeriod time.Time
	EndPeriod   time.Time

	Gateway         *GatewayReward
	Subscriber      *SubscriberReward
	ServiceProvider *ServiceProviderReward
	Unallocated     *UnallocatedReward
	Promotion       *PromotionReward
}

// GatewayReward rewards data transfer through one hotspot.
type GatewayReward struct {
	HotspotKey       string
	DCTransferReward uint64
	RewardableBytes  uint64
	Price            uint64
}

// SubscriberReward rewards one subscriber's mapping activity.
type SubscriberReward struct {
	SubscriberID              string
	DiscoveryLocationAmount   uint64
	VerificationMappingAmount uint64
}

// ServiceProviderReward rewards a carrier.
type ServiceProviderReward struct {
	ServiceProvider string
	Amount          uint64
}

// UnallocatedReward records the undistributed remainder of a reward pool.
type UnallocatedReward struct {
	RewardType string
	Amount     uint64
}

// PromotionReward rewards promotional activity for an entity.
type PromotionReward struct {
	Entity                string
	ServiceProviderAmount uint64
	MatchedAmount         uint64
}

func (*rewardsMapper) Kind() string   { return "mobile-rewards" }
func (*rewardsMapper) Bucket() string { return "mainnet-mobile-verified" }
func (*rewardsMapper) Prefix() string { return "mobile_network_reward_shares_v1" }

var periodFields = []Field{
	{Name: "start_period", SQLType: "TIMESTAMPTZ"},
	{Name: "end_period", SQLType: "TIMESTAMPTZ"},
}

func (*rewardsMapper) Schemas() []TableSchema {
	return []TableSchema{
		{
			Name: "mobile_gateway_rewards",
			Fields: append(append([]Field{}, periodFields...),
				Field{Name: "hotspot_key"},
				Field{Name: "dc_transfer_reward", SQLType: "UBIGINT"},
				Field{Name: "rewardable_bytes", SQLType: "UBIGINT"},
				Field{Name: "price", SQLType: "UBIGINT"},
			),
		},
		{
			Name: "mobile_subscriber_rewards",
			Fields: append(append([]Field{}, periodFields...),
				Field{Name: "subscriber_id"},
				Field{Name: "discovery_location_amount", SQLType: "UBIGINT"},
				Field{Name: "verification_mapping_amount", SQLType: "UBIGINT"},
			),
		},
		{
			Name: "mobile_service_provider_rewards",
			Fields: append(append([]Field{}, periodFields...),
				Field{Name: "service_provider"},
				Field{Name: "amount", SQLType: "UBIGINT"},
			),
		},
		{
			Name: "mobile_unallocated_rewards",
			Fields: append(append([]Field{}, periodFields...),
				Field{Name: "reward_type"},
				Field{Name: "amount", SQLType: "UBIGINT"},
			),
		},
		{
			Name: "mobile_promotion_rewards",
			Fields: append(append([]Field{}, periodFields...),
				Field{Name: "entity"},
				Field{Name: "service_provider_amount", SQLType: "UBIGINT"},
				Field{Name: "matched_amount", SQLType: "UBIGINT"},
			),
		},
	}
}

// Wire field numbers of the reward share envelope. Fields 4-8 form the
// reward oneof; higher numbers are variants this build does not persist.
const (
	rwStartPeriod     = 1
	rwEndPeriod       = 2
	rwGateway         = 4
	rwSubscriber      = 5
	rwServiceProvider = 6
	rwUnallocated     = 7
	rwPromotion       = 8
)

func (*rewardsMapper) Decode(b []byte) (Message, error) {
	var share RewardShare
	var variantSeen bool

	err := walkMessage(b, func(num protowire.Number, val uint64, raw []byte) error {
		if num >= rwGateway && raw != nil {
			variantSeen = true
		}
		switch num {
		case rwStartPeriod:
			share.StartPeriod = toTimestamp(val)
		case rwEndPeriod:
			share.EndPeriod = toTimestamp(val)
		case rwGateway:
			g, err := decodeGatewayReward(raw)
			if err != nil {
				return err
			}
			share.Gateway = g
		case rwSubscriber:
			s, err := decodeSubscriberReward(raw)
			if err != nil {
				return err
			}
			share.Subscriber = s
		case rwServiceProvider:
			sp, err := decodeServiceProviderReward(raw)
			if err != nil {
				return err
			}
			share.ServiceProvider = sp
		case rwUnallocated:
			u, err := decodeUnallocatedReward(raw)
			if err != nil {
				return err
			}
			share.Unallocated = u
		case rwPromotion:
			p, err := decodePromotionReward(raw)
			if err != nil {
				return err
			}
			share.Promotion = p
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode reward share: %w", err)
	}
	if !variantSeen {
		return nil, fmt.Errorf("decode reward share: missing reward oneof")
	}

	return &share, nil
}

func decodeGatewayReward(b []byte) (*GatewayReward, error) {
	var g GatewayReward
	err := walkMessage(b, func(num protowire.Number, val uint64, raw []byte) error {
		switch num {
		case 1:
			g.HotspotKey = publicKeyString(raw)
		case 2:
			g.DCTransferReward = val
		case 3:
			g.RewardableBytes = val
		case 4:
			g.Price = val
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gateway reward: %w", err)
	}
	return &g, nil
}

func decodeSubscriberReward(b []byte) (*SubscriberReward, error) {
	var s SubscriberReward
	err := walkMessage(b, func(num protowire.Number, val uint64, raw []byte) error {
		switch num {
		case 1:
			id, err := uuid.FromBytes(raw)
			if err != nil {
				return fmt.Errorf("subscriber id: %w", err)
			}
			s.SubscriberID = id.String()
		case 2:
			s.DiscoveryLocationAmount = val
		case 3:
			s.VerificationMappingAmount = val
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("subscriber reward: %w", err)
	}
	return &s, nil
}

func decodeServiceProviderReward(b []byte) (*ServiceProviderReward, error) {
	var sp ServiceProviderReward
	err := walkMessage(b, func(num protowire.Number, val uint64, _ []byte) error {
		switch num {
		case 1:
			sp.ServiceProvider = carrierName(val)
		case 2:
			sp.Amount = val
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service provider reward: %w", err)
	}
	return &sp, nil
}

var unallocatedRewardTypes = map[uint64]string{
	0: "UNALLOCATED_REWARD_TYPE_POC",
	1: "UNALLOCATED_REWARD_TYPE_DISCOVERY_LOCATION",
	2: "UNALLOCATED_REWARD_TYPE_MAPPER",
	3: "UNALLOCATED_REWARD_TYPE_SERVICE_PROVIDER",
	4: "UNALLOCATED_REWARD_TYPE_ORACLE",
	5: "UNALLOCATED_REWARD_TYPE_DATA",
}

func decodeUnallocatedReward(b []byte) (*UnallocatedReward, error) {
	var u UnallocatedReward
	err := walkMessage(b, func(num protowire.Number, val uint64, _ []byte) error {
		switch num {
		case 1:
			if name, ok := unallocatedRewardTypes[val]; ok {
				u.RewardType = name
			} else {
				u.RewardType = fmt.Sprintf("UNALLOCATED_REWARD_TYPE_%d", val)
			}
		case 2:
			u.Amount = val
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unallocated reward: %w", err)
	}
	return &u, nil
}

func decodePromotionReward(b []byte) (*PromotionReward, error) {
	var p PromotionReward
	err := walkMessage(b, func(num protowire.Number, val uint64, raw []byte) error {
		switch num {
		case 1:
			p.Entity = string(raw)
		case 2:
			p.ServiceProviderAmount = val
		case 3:
			p.MatchedAmount = val
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("promotion reward: %w", err)
	}
	return &p, nil
}

// Map buckets the share into the table for its variant. Unknown variants
// produce no rows.
func (*rewardsMapper) Map(msg Message, _ string) []TableRows {
	share := msg.(*RewardShare)
	start, end := share.StartPeriod, share.EndPeriod

	switch {
	case share.Gateway != nil:
		g := share.Gateway
		return []TableRows{{
			Table: "mobile_gateway_rewards",
			Rows:  []Row{{start, end, g.HotspotKey, g.DCTransferReward, g.RewardableBytes, g.Price}},
		}}
	case share.Subscriber != nil:
		s := share.Subscriber
		return []TableRows{{
			Table: "mobile_subscriber_rewards",
			Rows:  []Row{{start, end, s.SubscriberID, s.DiscoveryLocationAmount, s.VerificationMappingAmount}},
		}}
	case share.ServiceProvider != nil:
		sp := share.ServiceProvider
		return []TableRows{{
			Table: "mobile_service_provider_rewards",
			Rows:  []Row{{start, end, sp.ServiceProvider, sp.Amount}},
		}}
	case share.Unallocated != nil:
		u := share.Unallocated
		return []TableRows{{
			Table: "mobile_unallocated_rewards",
			Rows:  []Row{{start, end, u.RewardType, u.Amount}},
		}}
	case share.Promotion != nil:
		p := share.Promotion
		return []TableRows{{
			Table: "mobile_promotion_rewards",
			Rows:  []Row{{start, end, p.Entity, p.ServiceProviderAmount, p.MatchedAmount}},
		}}
	default:
		return nil
	}
}
