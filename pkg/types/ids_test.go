package types

import (
	"encoding/json"
	"errors"
	"net"
	"testing"
)

func TestLinkAddress(t *testing.T) {
	t.Run("ParseLinkAddress", func(t *testing.T) {
		tests := []struct {
			name    string
			input   string
			want    LinkAddress
			wantErr bool
		}{
			{"mac48", "00:02:c9:00:02:aa", 0x0002c90002aa, false},
			{"mac48 dashes", "00-02-c9-00-02-aa", 0x0002c90002aa, false},
			{"eui64", "00:02:c9:03:00:00:00:01", 0x0002c90300000001, false},
			{"hex", "0x2aa", 0x2aa, false},
			{"bad hex", "0xzz", 0, true},
			{"garbage", "not-a-mac", 0, true},
			{"empty", "", 0, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := ParseLinkAddress(tt.input)
				if (err != nil) != tt.wantErr {
					t.Fatalf("ParseLinkAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				}
				if err != nil && !errors.Is(err, ErrInvalidLinkAddress) {
					t.Errorf("ParseLinkAddress(%q) error = %v, want ErrInvalidLinkAddress", tt.input, err)
				}
				if got != tt.want {
					t.Errorf("ParseLinkAddress(%q) = %#x, want %#x", tt.input, uint64(got), uint64(tt.want))
				}
			})
		}
	})

	t.Run("String", func(t *testing.T) {
		if s := LinkAddress(0x0002c90002aa).String(); s != "00:02:c9:00:02:aa" {
			t.Errorf("String() = %q", s)
		}
		if s := LinkAddress(0x0002c90300000001).String(); s != "00:02:c9:03:00:00:00:01" {
			t.Errorf("String() = %q", s)
		}
	})

	t.Run("FromHardware", func(t *testing.T) {
		// IPoIB: 4 字节 QPN + 16 字节 GID
		hw := net.HardwareAddr{
			0x00, 0x00, 0x04, 0x48,
			0xfe, 0x80, 0, 0, 0, 0, 0, 0,
			0x00, 0x02, 0xc9, 0x03, 0x00, 0x00, 0x00, 0x01,
		}
		got, err := LinkAddressFromHardware(hw)
		if err != nil {
			t.Fatalf("LinkAddressFromHardware() error = %v", err)
		}
		if got != 0x0002c90300000001 {
			t.Errorf("LinkAddressFromHardware() = %#x", uint64(got))
		}

		if _, err := LinkAddressFromHardware(net.HardwareAddr{1, 2, 3}); !errors.Is(err, ErrInvalidLinkAddress) {
			t.Errorf("short address error = %v", err)
		}
	})
}

func TestFabricID(t *testing.T) {
	t.Run("PrefixAndInterface", func(t *testing.T) {
		id := NewFabricID(LinkLocalPrefix, 0x0002c90300000001)
		if id.Prefix() != LinkLocalPrefix {
			t.Errorf("Prefix() = %#x", id.Prefix())
		}
		if id.InterfaceID() != 0x0002c90300000001 {
			t.Errorf("InterfaceID() = %#x", id.InterfaceID())
		}
		if id.String() != "fe80::2:c903:0:1" {
			t.Errorf("String() = %q", id.String())
		}
		if id.IsZero() || !(FabricID{}).IsZero() {
			t.Error("IsZero() mismatch")
		}
	})

	t.Run("Parse", func(t *testing.T) {
		id, err := ParseFabricID("fe80::2:c903:0:1")
		if err != nil {
			t.Fatalf("ParseFabricID() error = %v", err)
		}
		if id != NewFabricID(LinkLocalPrefix, 0x0002c90300000001) {
			t.Errorf("ParseFabricID() = %s", id)
		}
		if _, err := ParseFabricID("192.0.2.1"); err == nil {
			t.Error("ParseFabricID(ipv4) should fail")
		}
	})

	t.Run("JSON", func(t *testing.T) {
		id := NewFabricID(LinkLocalPrefix, 0x77)
		data, err := json.Marshal(id)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(data) != `"fe80::77"` {
			t.Errorf("Marshal() = %s", data)
		}
		var back FabricID
		if err := json.Unmarshal(data, &back); err != nil || back != id {
			t.Errorf("Unmarshal() = %s, %v", back, err)
		}
	})
}

func TestEUI64(t *testing.T) {
	tests := []struct {
		name string
		in   LinkAddress
		want uint64
	}{
		{"mac48", 0x0002c90002aa, 0x0202c9fffe0002aa},
		{"local bit flipped", 0x020000000001, 0x000000fffe000001},
		{"guid passthrough", 0x0002c90300000001, 0x0002c90300000001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EUI64(tt.in); got != tt.want {
				t.Errorf("EUI64(%#x) = %#x, want %#x", uint64(tt.in), got, tt.want)
			}
		})
	}
}

func TestOwnerID(t *testing.T) {
	t.Run("ParseRoundTrip", func(t *testing.T) {
		o := NewOwnerID()
		if o.IsNil() {
			t.Fatal("NewOwnerID() returned nil GUID")
		}
		back, err := ParseOwnerID(o.String())
		if err != nil || back != o {
			t.Errorf("ParseOwnerID(%q) = %s, %v", o.String(), back, err)
		}
		if _, err := ParseOwnerID("nope"); err == nil {
			t.Error("ParseOwnerID(nope) should fail")
		}
	})

	t.Run("JSONText", func(t *testing.T) {
		o, _ := ParseOwnerID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
		data, err := json.Marshal(struct {
			Owner OwnerID `json:"owner"`
		}{o})
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(data) != `{"owner":"6ba7b810-9dad-11d1-80b4-00c04fd430c8"}` {
			t.Errorf("Marshal() = %s", data)
		}
	})
}
