package observability

import "testing"

func TestSampleRatioDefaultsAndClamps(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"", 1},
		{"garbage", 1},
		{"0.25", 0.25},
		{"-3", 0},
		{"7", 1},
	}
	for _, tc := range cases {
		t.Setenv("OTEL_SAMPLER_RATIO", tc.raw)
		if got := sampleRatio(); got != tc.want {
			t.Fatalf("ratio for %q: got=%v want=%v", tc.raw, got, tc.want)
		}
	}
}

func TestOtlpHeadersParsing(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", " authorization=Bearer abc , x-tenant=adforge, malformed, =empty ")
	headers := otlpHeaders()
	if len(headers) != 2 {
		t.Fatalf("headers: got=%v", headers)
	}
	if headers["authorization"] != "Bearer abc" || headers["x-tenant"] != "adforge" {
		t.Fatalf("header values: got=%v", headers)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")
	if got := otlpHeaders(); got != nil {
		t.Fatalf("empty env: got=%v", got)
	}
}

func TestEnvFlag(t *testing.T) {
	for _, raw := range []string{"1", "true", "YES", " on "} {
		t.Setenv("OTEL_ENABLED", raw)
		if !envFlag("OTEL_ENABLED") {
			t.Fatalf("%q should enable", raw)
		}
	}
	for _, raw := range []string{"", "0", "false", "off", "maybe"} {
		t.Setenv("OTEL_ENABLED", raw)
		if envFlag("OTEL_ENABLED") {
			t.Fatalf("%q should not enable", raw)
		}
	}
}
