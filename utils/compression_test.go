package utils

import (
	"strings"
	"testing"
)

func TestCompressTextRoundTrip(t *testing.T) {
	payload := strings.Repeat("cached search results with repetitive structure ", 40)

	compressed, algo, err := CompressText(payload)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	if algo != CompressionBrotli {
		t.Fatalf("large payload should use brotli, got %s", algo)
	}
	if len(compressed) >= len(payload) {
		t.Fatalf("compression did not shrink payload: %d >= %d", len(compressed), len(payload))
	}

	restored, err := DecompressText(compressed, algo)
	if err != nil {
		t.Fatalf("decompress failed: %v", err)
	}
	if restored != payload {
		t.Fatalf("round trip mismatch")
	}
}

func TestCompressTextSmallPayloadStaysPlain(t *testing.T) {
	payload := "tiny"
	data, algo, err := CompressText(payload)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	if algo != CompressionNone {
		t.Fatalf("small payload should not be compressed, got %s", algo)
	}
	restored, err := DecompressText(data, algo)
	if err != nil {
		t.Fatalf("decompress failed: %v", err)
	}
	if restored != payload {
		t.Fatalf("round trip mismatch")
	}
}
