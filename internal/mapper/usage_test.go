// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package mapper

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRadioUsageDecode(t *testing.T) {
	m, ok := Lookup("radio-usage-stats")
	require.True(t, ok)

	var carrierInfo []byte
	carrierInfo = appendVarintField(carrierInfo, ruCarrierID, 1)
	carrierInfo = appendVarintField(carrierInfo, ruCarrierUsers, 12)
	carrierInfo = appendVarintField(carrierInfo, ruCarrierRewarded, 500)
	carrierInfo = appendVarintField(carrierInfo, ruCarrierUnrewarded, 50)

	var sampling []byte
	sampling = appendVarintField(sampling, ruCarrierID, 0)
	sampling = appendVarintField(sampling, ruCarrierUsers, 3)
	sampling = appendVarintField(sampling, ruSamplingBytes, 99)

	hotspot := []byte{0x10, 0x20}
	carrierKey := []byte{0x30, 0x40}

	var inner []byte
	inner = appendBytesField(inner, ruReportHotspot, hotspot)
	inner = appendBytesField(inner, ruReportCarrier, carrierKey)
	inner = appendVarintField(inner, ruReportEpochStart, 1722520800)
	inner = appendVarintField(inner, ruReportEpochEnd, 1722524400)
	inner = appendVarintField(inner, ruReportTimestamp, 1722524400)
	inner = appendVarintField(inner, ruReportUserCount, 15)
	inner = appendVarintField(inner, ruReportRewardedBytes, 550)
	inner = appendVarintField(inner, ruReportUnrewardedBytes, 50)
	inner = appendVarintField(inner, ruReportSamplingUsers, 3)
	inner = appendVarintField(inner, ruReportSamplingBytes, 99)
	inner = appendBytesField(inner, ruReportCarrierInfo, carrierInfo)
	inner = appendBytesField(inner, ruReportSamplingCarriers, sampling)

	var frame []byte
	frame = appendBytesField(frame, ruIngestReport, inner)
	frame = appendVarintField(frame, ruIngestReceivedAt, 1722524400999)

	msg, err := m.Decode(frame)
	require.NoError(t, err)

	r := msg.(*RadioUsageReport)
	assert.Equal(t, publicKeyString(hotspot), r.HotspotKey)
	assert.Equal(t, publicKeyString(carrierKey), r.CarrierPubkey)
	assert.Equal(t, uint64(15), r.UserCount)
	assert.Equal(t, uint64(550), r.RewardedBytes)
	assert.Equal(t, uint64(99), r.SamplingBytes)

	require.Len(t, r.CarrierTransfer, 1)
	assert.Equal(t, "HELIUM_MOBILE", r.CarrierTransfer[0].CarrierID)
	assert.Equal(t, uint64(12), r.CarrierTransfer[0].UserCount)
	assert.Equal(t, uint64(500), r.CarrierTransfer[0].RewardedBytes)

	require.Len(t, r.SamplingTransfer, 1)
	assert.Equal(t, "CARRIER_UNKNOWN", r.SamplingTransfer[0].CarrierID)
	assert.Equal(t, uint64(99), r.SamplingTransfer[0].BytesTransferred)
}

func TestRadioUsageDecodeMissingReport(t *testing.T) {
	m, _ := Lookup("radio-usage-stats")

	frame := appendVarintField(nil, ruIngestReceivedAt, 1722524400)
	_, err := m.Decode(frame)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing report")
}

func TestRadioUsageMapJSONColumns(t *testing.T) {
	m, _ := Lookup("radio-usage-stats")

	report := &RadioUsageReport{
		HotspotKey: "hk",
		CarrierTransfer: []CarrierTransfer{
			{CarrierID: "HELIUM_MOBILE", UserCount: 2, RewardedBytes: 10, UnrewardedBytes: 1},
		},
		SamplingTransfer: []SamplingTransfer{},
	}

	batches := m.Map(report, "radio_usage_stats_ingest_report_v2.1.gz")
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Rows, 1)

	row := batches[0].Rows[0]
	require.Len(t, row, len(m.Schemas()[0].Fields))

	var decoded []CarrierTransfer
	require.NoError(t, json.Unmarshal([]byte(row[11].(string)), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "HELIUM_MOBILE", decoded[0].CarrierID)
	assert.Equal(t, uint64(10), decoded[0].RewardedBytes)

	// Absent collections persist as empty arrays, not NULL.
	assert.Equal(t, "[]", row[12])
}

func TestRadioUsageDecodeEmptyCollections(t *testing.T) {
	m, _ := Lookup("radio-usage-stats")

	inner := appendVarintField(nil, ruReportUserCount, 1)
	frame := appendBytesField(nil, ruIngestReport, inner)

	msg, err := m.Decode(frame)
	require.NoError(t, err)

	r := msg.(*RadioUsageReport)
	assert.NotNil(t, r.CarrierTransfer)
	assert.NotNil(t, r.SamplingTransfer)
	assert.Empty(t, r.CarrierTransfer)
}
