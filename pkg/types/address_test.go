package types

import (
	"errors"
	"net/netip"
	"testing"
)

func TestCheckAddressPair(t *testing.T) {
	v4 := netip.MustParseAddr("192.0.2.1")
	v4b := netip.MustParseAddr("192.0.2.2")
	mapped := netip.MustParseAddr("::ffff:192.0.2.2")
	v6 := netip.MustParseAddr("2001:db8::1")

	tests := []struct {
		name          string
		local, remote netip.Addr
		wantErr       bool
	}{
		{"v4 pair", v4, v4b, false},
		{"mapped remote", v4, mapped, false},
		{"v6 pair", v6, v6, false},
		{"mixed", v4, v6, true},
		{"invalid local", netip.Addr{}, v4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, r, err := CheckAddressPair(tt.local, tt.remote)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckAddressPair() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidAddressFamily) {
					t.Errorf("error = %v, want ErrInvalidAddressFamily", err)
				}
				return
			}
			if l.Is4In6() || r.Is4In6() {
				t.Errorf("addresses not unmapped: %s %s", l, r)
			}
		})
	}
}

func TestPortFilter_Match(t *testing.T) {
	owner := OwnerID{0x01}
	other := OwnerID{0x02}
	rec := PortRecord{PortGUID: 0xa1, PKey: 0xffff, CAGUID: 0xca}
	guid, pkey, ca, wrong := uint64(0xa1), uint16(0xffff), uint64(0xca), uint64(0xff)

	tests := []struct {
		name   string
		filter PortFilter
		want   bool
	}{
		{"empty", PortFilter{}, true},
		{"owner", PortFilter{Owner: &owner}, true},
		{"other owner", PortFilter{Owner: &other}, false},
		{"all fields", PortFilter{Owner: &owner, PortGUID: &guid, PKey: &pkey, CAGUID: &ca}, true},
		{"wrong guid", PortFilter{PortGUID: &wrong}, false},
		{"wrong ca", PortFilter{CAGUID: &wrong}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(owner, rec); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}
