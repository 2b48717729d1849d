package types

import (
	"fmt"
	"strings"
)

// Resource is an enumerated craft kind. Variants with the VEN prefix are
// performed by external vendor crews.
type Resource string

const (
	MtnMech  Resource = "MTN-MECH"
	MtnElec  Resource = "MTN-ELEC"
	MtnInst  Resource = "MTN-INST"
	MtnRope  Resource = "MTN-ROPE"
	MtnPipf  Resource = "MTN-PIPF"
	MtnScaf  Resource = "MTN-SCAF"
	MtnPain  Resource = "MTN-PAIN"
	MtnTele  Resource = "MTN-TELE"
	Prodtech Resource = "PRODTECH"
	VenMech  Resource = "VEN-MECH"
	VenElec  Resource = "VEN-ELEC"
	VenInst  Resource = "VEN-INST"
	VenScaf  Resource = "VEN-SCAF"
	WellMain Resource = "WELL-MAIN"
)

// AllResources returns every known craft kind in a stable order.
func AllResources() []Resource {
	return []Resource{
		MtnMech, MtnElec, MtnInst, MtnRope, MtnPipf, MtnScaf,
		MtnPain, MtnTele, Prodtech, VenMech, VenElec, VenInst,
		VenScaf, WellMain,
	}
}

// IsVendor reports whether the craft is performed by a vendor crew.
func (r Resource) IsVendor() bool {
	return strings.HasPrefix(string(r), "VEN-")
}

// ParseResource converts a work-center string into a Resource.
func ParseResource(s string) (Resource, error) {
	candidate := Resource(strings.ToUpper(strings.TrimSpace(s)))
	for _, r := range AllResources() {
		if r == candidate {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown resource: %q", s)
}

// Asset identifies an installation. Every worker and work order belongs to
// exactly one asset; actors of different assets share nothing.
type Asset string

const (
	AssetUnknown Asset = ""
	AssetDF      Asset = "DF"
	AssetHB      Asset = "HB"
	AssetHC      Asset = "HC"
	AssetHD      Asset = "HD"
	AssetTS      Asset = "TS"
)
