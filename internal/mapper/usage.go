// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package mapper

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"google.golang.org/protobuf/encoding/protowire"
)

func init() {
	Register(&radioUsageMapper{})
}

// radioUsageMapper imports per-radio usage statistics reports. Each report
// carries per-carrier transfer breakdowns, persisted as JSON columns so the
// carrier set can grow without schema changes.
type radioUsageMapper struct{}

// RadioUsageReport is a decoded radio usage stats ingest report.
type RadioUsageReport struct {
	HotspotKey        string
	CarrierPubkey     string
	StartPeriod       time.Time
	EndPeriod         time.Time
	Timestamp         time.Time
	ReceivedTimestamp time.Time
	UserCount         uint64
	RewardedBytes     uint64
	UnrewardedBytes   uint64
	SamplingUserCount uint64
	SamplingBytes     uint64
	CarrierTransfer   []CarrierTransfer
	SamplingTransfer  []SamplingTransfer
}

// CarrierTransfer is one carrier's share of a usage report.
type CarrierTransfer struct {
	CarrierID       string `json:"carrier_id"`
	UserCount       uint64 `json:"user_count"`
	RewardedBytes   uint64 `json:"rewarded_bytes_transferred"`
	UnrewardedBytes uint64 `json:"unrewarded_bytes_transferred"`
}

// SamplingTransfer is one carrier's share of the sampled traffic.
type SamplingTransfer struct {
	CarrierID        string `json:"carrier_id"`
	UserCount        uint64 `json:"user_count"`
	BytesTransferred uint64 `json:"bytes_transferred"`
}

func (*radioUsageMapper) Kind() string   { return "radio-usage-stats" }
func (*radioUsageMapper) Bucket() string { return "mainnet-mobile-ingest" }
func (*radioUsageMapper) Prefix() string { return "radio_usage_stats_ingest_report_v2" }

func (*radioUsageMapper) Schemas() []TableSchema {
	return []TableSchema{{
		Name: "radio_usage_stats",
		Fields: []Field{
			{Name: "hotspot_key"},
			{Name: "start_period", SQLType: "TIMESTAMPTZ"},
			{Name: "end_period", SQLType: "TIMESTAMPTZ"},
			{Name: "timestamp", SQLType: "TIMESTAMPTZ"},
			{Name: "received_timestamp", SQLType: "TIMESTAMPTZ"},
			{Name: "carrier_pubkey"},
			{Name: "user_count_total", SQLType: "UBIGINT"},
			{Name: "rewarded_bytes_transferred_total", SQLType: "UBIGINT"},
			{Name: "unrewarded_bytes_transferred_total", SQLType: "UBIGINT"},
			{Name: "sampling_user_count_total", SQLType: "UBIGINT"},
			{Name: "sampling_bytes_transferred_total", SQLType: "UBIGINT"},
			{Name: "carrier_transfer_info", SQLType: "JSON"},
			{Name: "sampling_carrier_transfer_info", SQLType: "JSON"},
		},
	}}
}

// Wire field numbers of the usage report envelope and nested messages.
const (
	ruIngestReport     = 1
	ruIngestReceivedAt = 2

	ruReportHotspot          = 1
	ruReportCarrier          = 2
	ruReportEpochStart       = 3
	ruReportEpochEnd         = 4
	ruReportTimestamp        = 5
	ruReportUserCount        = 6
	ruReportRewardedBytes    = 7
	ruReportUnrewardedBytes  = 8
	ruReportSamplingUsers    = 9
	ruReportSamplingBytes    = 10
	ruReportCarrierInfo      = 11
	ruReportSamplingCarriers = 12

	ruCarrierID         = 1
	ruCarrierUsers      = 2
	ruCarrierRewarded   = 3
	ruCarrierUnrewarded = 4
	ruSamplingBytes     = 3
)

func (*radioUsageMapper) Decode(b []byte) (Message, error) {
	report := RadioUsageReport{
		CarrierTransfer:  []CarrierTransfer{},
		SamplingTransfer: []SamplingTransfer{},
	}
	var inner []byte

	err := walkMessage(b, func(num protowire.Number, val uint64, raw []byte) error {
		switch num {
		case ruIngestReport:
			inner = raw
		case ruIngestReceivedAt:
			report.ReceivedTimestamp = toTimestamp(val)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode usage ingest report: %w", err)
	}
	if inner == nil {
		return nil, fmt.Errorf("decode usage ingest report: missing report")
	}

	err = walkMessage(inner, func(num protowire.Number, val uint64, raw []byte) error {
		switch num {
		case ruReportHotspot:
			report.HotspotKey = publicKeyString(raw)
		case ruReportCarrier:
			report.CarrierPubkey = publicKeyString(raw)
		case ruReportEpochStart:
			report.StartPeriod = toTimestamp(val)
		case ruReportEpochEnd:
			report.EndPeriod = toTimestamp(val)
		case ruReportTimestamp:
			report.Timestamp = toTimestamp(val)
		case ruReportUserCount:
			report.UserCount = val
		case ruReportRewardedBytes:
			report.RewardedBytes = val
		case ruReportUnrewardedBytes:
			report.UnrewardedBytes = val
		case ruReportSamplingUsers:
			report.SamplingUserCount = val
		case ruReportSamplingBytes:
			report.SamplingBytes = val
		case ruReportCarrierInfo:
			info, err := decodeCarrierTransfer(raw)
			if err != nil {
				return err
			}
			report.CarrierTransfer = append(report.CarrierTransfer, info)
		case ruReportSamplingCarriers:
			info, err := decodeSamplingTransfer(raw)
			if err != nil {
				return err
			}
			report.SamplingTransfer = append(report.SamplingTransfer, info)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode usage report: %w", err)
	}

	return &report, nil
}

func decodeCarrierTransfer(b []byte) (CarrierTransfer, error) {
	var info CarrierTransfer
	err := walkMessage(b, func(num protowire.Number, val uint64, _ []byte) error {
		switch num {
		case ruCarrierID:
			info.CarrierID = carrierName(val)
		case ruCarrierUsers:
			info.UserCount = val
		case ruCarrierRewarded:
			info.RewardedBytes = val
		case ruCarrierUnrewarded:
			info.UnrewardedBytes = val
		}
		return nil
	})
	return info, err
}

func decodeSamplingTransfer(b []byte) (SamplingTransfer, error) {
	var info SamplingTransfer
	err := walkMessage(b, func(num protowire.Number, val uint64, _ []byte) error {
		switch num {
		case ruCarrierID:
			info.CarrierID = carrierName(val)
		case ruCarrierUsers:
			info.UserCount = val
		case ruSamplingBytes:
			info.BytesTransferred = val
		}
		return nil
	})
	return info, err
}

func (*radioUsageMapper) Map(msg Message, _ string) []TableRows {
	r := msg.(*RadioUsageReport)

	// Marshaling a slice of plain structs cannot fail; empty slices
	// still produce valid JSON arrays.
	carrierJSON := marshalJSON(r.CarrierTransfer)
	samplingJSON := marshalJSON(r.SamplingTransfer)

	return []TableRows{{
		Table: "radio_usage_stats",
		Rows: []Row{{
			r.HotspotKey,
			r.StartPeriod,
			r.EndPeriod,
			r.Timestamp,
			r.ReceivedTimestamp,
			r.CarrierPubkey,
			r.UserCount,
			r.RewardedBytes,
			r.UnrewardedBytes,
			r.SamplingUserCount,
			r.SamplingBytes,
			carrierJSON,
			samplingJSON,
		}},
	}}
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
