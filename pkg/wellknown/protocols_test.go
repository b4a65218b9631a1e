package wellknown

import "testing"

func TestLookupTCPImpliesIPv4(t *testing.T) {
	// tcp must expand to both dl_type and nw_proto so transport ports validate.
	entry, ok := Lookup("TCP")
	if !ok {
		t.Fatalf("expected tcp to be registered")
	}
	if entry.DlType != 0x0800 {
		t.Fatalf("expected dl_type 0x0800, got %#x", entry.DlType)
	}
	if entry.NwProto == nil || *entry.NwProto != 6 {
		t.Fatalf("expected nw_proto 6, got %v", entry.NwProto)
	}
}

func TestLookupLayer2OnlyShorthands(t *testing.T) {
	// ip and arp only constrain the ethertype.
	for name, dlType := range map[string]uint16{"ip": 0x0800, "arp": 0x0806, "ipv6": 0x86dd} {
		entry, ok := Lookup(name)
		if !ok {
			t.Fatalf("expected %s to be registered", name)
		}
		if entry.DlType != dlType || entry.NwProto != nil {
			t.Fatalf("unexpected entry for %s: %#v", name, entry)
		}
	}
}

func TestLookupReturnsFalseForUnknown(t *testing.T) {
	if _, ok := Lookup("definitely-not-a-protocol"); ok {
		t.Fatalf("expected unknown keyword to return ok=false")
	}
}
