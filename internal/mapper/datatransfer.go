// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package mapper

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

func init() {
	Register(&dataTransferMapper{})
}

// dataTransferMapper imports data transfer session ingest reports: one
// report per frame, one row per report.
type dataTransferMapper struct{}

// DataTransferReport is a decoded data transfer session ingest report.
type DataTransferReport struct {
	HotspotKey        string
	UploadBytes       uint64
	DownloadBytes     uint64
	RewardableBytes   uint64
	Technology        string
	EventID           string
	Payer             string
	Timestamp         time.Time
	ReceivedTimestamp time.Time
	CarrierID         string
}

func (*dataTransferMapper) Kind() string   { return "data-transfer-ingest" }
func (*dataTransferMapper) Bucket() string { return "mainnet-mobile-ingest" }
func (*dataTransferMapper) Prefix() string { return "data_transfer_session_ingest_report" }

func (*dataTransferMapper) Schemas() []TableSchema {
	return []TableSchema{{
		Name: "data_transfer_ingest_reports",
		Fields: []Field{
			{Name: "hotspot_key"},
			{Name: "upload_bytes", SQLType: "UBIGINT"},
			{Name: "download_bytes", SQLType: "UBIGINT"},
			{Name: "rewardable_bytes", SQLType: "UBIGINT"},
			{Name: "technology"},
			{Name: "event_id"},
			{Name: "payer"},
			{Name: "timestamp", SQLType: "TIMESTAMPTZ"},
			{Name: "received_timestamp", SQLType: "TIMESTAMPTZ"},
			{Name: "carrier_id"},
		},
	}}
}

// Wire field numbers of the ingest report envelope and its nested
// session and usage messages.
const (
	dtIngestReport       = 1
	dtIngestReceivedAt   = 2
	dtSessionUsage       = 1
	dtSessionRewardable  = 2
	dtSessionCarrier     = 3
	dtUsagePubKey        = 1
	dtUsageUploadBytes   = 2
	dtUsageDownloadBytes = 3
	dtUsageTechnology    = 4
	dtUsageEventID       = 5
	dtUsagePayer         = 6
	dtUsageTimestamp     = 7
)

func (*dataTransferMapper) Decode(b []byte) (Message, error) {
	var (
		report  DataTransferReport
		session []byte
		usage   []byte
		carrier uint64
	)

	err := walkMessage(b, func(num protowire.Number, val uint64, raw []byte) error {
		switch num {
		case dtIngestReport:
			session = raw
		case dtIngestReceivedAt:
			report.ReceivedTimestamp = toTimestamp(val)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode ingest report: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("decode ingest report: missing session report")
	}

	err = walkMessage(session, func(num protowire.Number, val uint64, raw []byte) error {
		switch num {
		case dtSessionUsage:
			usage = raw
		case dtSessionRewardable:
			report.RewardableBytes = val
		case dtSessionCarrier:
			carrier = val
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode session report: %w", err)
	}
	if usage == nil {
		return nil, fmt.Errorf("decode session report: missing transfer usage")
	}

	err = walkMessage(usage, func(num protowire.Number, val uint64, raw []byte) error {
		switch num {
		case dtUsagePubKey:
			report.HotspotKey = publicKeyString(raw)
		case dtUsageUploadBytes:
			report.UploadBytes = val
		case dtUsageDownloadBytes:
			report.DownloadBytes = val
		case dtUsageTechnology:
			report.Technology = technologyName(val)
		case dtUsageEventID:
			report.EventID = string(raw)
		case dtUsagePayer:
			report.Payer = publicKeyString(raw)
		case dtUsageTimestamp:
			report.Timestamp = toTimestamp(val)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode transfer usage: %w", err)
	}

	report.CarrierID = carrierName(carrier)
	return &report, nil
}

func (*dataTransferMapper) Map(msg Message, _ string) []TableRows {
	r := msg.(*DataTransferReport)
	return []TableRows{{
		Table: "data_transfer_ingest_reports",
		Rows: []Row{{
			r.HotspotKey,
			r.UploadBytes,
			r.DownloadBytes,
			r.RewardableBytes,
			r.Technology,
			r.EventID,
			r.Payer,
			r.Timestamp,
			r.ReceivedTimestamp,
			r.CarrierID,
		}},
	}}
}

var technologyNames = map[uint64]string{
	0: "UTRAN",
	1: "GERAN",
	2: "WLAN",
	3: "EUTRAN",
	4: "NR",
}

func technologyName(v uint64) string {
	if name, ok := technologyNames[v]; ok {
		return name
	}
	return fmt.Sprintf("TECHNOLOGY_%d", v)
}

var carrierNames = map[uint64]string{
	0: "CARRIER_UNKNOWN",
	1: "HELIUM_MOBILE",
}

func carrierName(v uint64) string {
	if name, ok := carrierNames[v]; ok {
		return name
	}
	return fmt.Sprintf("CARRIER_%d", v)
}
