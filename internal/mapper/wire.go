// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package mapper

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"google.golang.org/protobuf/encoding/protowire"
)

// walkMessage iterates the top-level fields of a protobuf wire-format
// message. Varint, fixed32, and fixed64 values arrive in val;
// length-delimited payloads (strings, bytes, sub-messages) arrive in raw.
// Unknown fields are the caller's to ignore; groups are skipped.
//
// The bundled mappers decode against the wire format directly instead of
// generated message types: each needs a handful of scalar fields from a
// large upstream schema, and an unknown-field-tolerant scanner keeps the
// import working when the upstream adds fields.
func walkMessage(b []byte, visit func(num protowire.Number, val uint64, raw []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("consume tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			if err := visit(num, v, nil); err != nil {
				return err
			}
			b = b[m:]

		case protowire.Fixed32Type:
			v, m := protowire.ConsumeFixed32(b)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			if err := visit(num, uint64(v), nil); err != nil {
				return err
			}
			b = b[m:]

		case protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			if err := visit(num, v, nil); err != nil {
				return err
			}
			b = b[m:]

		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			if err := visit(num, 0, v); err != nil {
				return err
			}
			b = b[m:]

		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return nil
}

// timestampThreshold separates second-resolution from millisecond-
// resolution epoch values in upstream records; producers are inconsistent.
const timestampThreshold = 1_000_000_000_000

// toTimestamp interprets an epoch value as seconds or milliseconds
// depending on magnitude, always UTC.
func toTimestamp(v uint64) time.Time {
	if v > timestampThreshold {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

// publicKeyString renders a binary public key in the display form used
// throughout the upstream ecosystem: base58check with version byte 0.
func publicKeyString(b []byte) string {
	return base58.CheckEncode(b, 0)
}
