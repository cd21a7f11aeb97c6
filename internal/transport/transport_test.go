package transport

import (
	"errors"
	"testing"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		in      string
		want    SerialConfig
		wantErr bool
	}{
		{in: "9600-8N1", want: SerialConfig{Baud: 9600, DataBits: 8, Parity: ParityNone, StopBits: 1}},
		{in: "115200-7E2", want: SerialConfig{Baud: 115200, DataBits: 7, Parity: ParityEven, StopBits: 2}},
		{in: "2400-5o1", want: SerialConfig{Baud: 2400, DataBits: 5, Parity: ParityOdd, StopBits: 1}},
		{in: "9600-8n1", want: SerialConfig{Baud: 9600, DataBits: 8, Parity: ParityNone, StopBits: 1}},
		{in: "", wantErr: true},
		{in: "9600", wantErr: true},
		{in: "9600-8N", wantErr: true},
		{in: "9600-8N1X", wantErr: true},
		{in: "banana-8N1", wantErr: true},
		{in: "9601-8N1", wantErr: true},
		{in: "9600-9N1", wantErr: true},
		{in: "9600-8X1", wantErr: true},
		{in: "9600-8N3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseConfig(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("ParseConfig(%q) error = %v, want ErrInvalidConfig", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseConfig(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseConfig(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSerialConfigString(t *testing.T) {
	cfg, err := ParseConfig("19200-7O2")
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if got := cfg.String(); got != "19200-7O2" {
		t.Errorf("String() = %q, want %q", got, "19200-7O2")
	}
}
