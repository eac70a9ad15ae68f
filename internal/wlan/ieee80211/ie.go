package ieee80211

import "errors"

// Information Element IDs
const (
	IESSID            = 0
	IESupportedRates  = 1
	IEDSParameterSet  = 3
	IETIM             = 5
	IECountry         = 7
	IEPowerCapability = 33
	IEHTCapabilities  = 45
	IERSN             = 48
	IEExtendedRates   = 50
	IEMobilityDomain  = 54
	IEFastBSSTrans    = 55
	IEVendorSpecific  = 221
)

var (
	ErrMalformedIE = errors.New("malformed information element")
	ErrIENotFound  = errors.New("information element not found")
)

// InformationElement is a single TLV element.
type InformationElement struct {
	ID   uint8
	Data []byte
}

// Bytes encodes the element. Data longer than 255 bytes is truncated.
func (ie InformationElement) Bytes() []byte {
	data := ie.Data
	if len(data) > 255 {
		data = data[:255]
	}
	out := make([]byte, 0, 2+len(data))
	out = append(out, ie.ID, byte(len(data)))
	return append(out, data...)
}

// IterateIEs calls fn for each well-formed element, stopping at the first
// element whose length runs past the end of data.
func IterateIEs(data []byte, fn func(id uint8, val []byte)) {
	off := 0
	for off+2 <= len(data) {
		id := data[off]
		length := int(data[off+1])
		off += 2
		if off+length > len(data) {
			return
		}
		fn(id, data[off:off+length])
		off += length
	}
}

// ParseInformationElements collects all well-formed elements.
func ParseInformationElements(data []byte) []InformationElement {
	var out []InformationElement
	IterateIEs(data, func(id uint8, val []byte) {
		out = append(out, InformationElement{ID: id, Data: append([]byte(nil), val...)})
	})
	return out
}

// FindIE returns the body of the first element with the given ID.
func FindIE(data []byte, target uint8) ([]byte, error) {
	var found []byte
	ok := false
	IterateIEs(data, func(id uint8, val []byte) {
		if !ok && id == target {
			found, ok = val, true
		}
	})
	if !ok {
		return nil, ErrIENotFound
	}
	return found, nil
}

// FindVendorIE returns the body of the first vendor element whose OUI and
// OUI type match.
func FindVendorIE(data []byte, oui [3]byte, ouiType uint8) ([]byte, error) {
	var found []byte
	ok := false
	IterateIEs(data, func(id uint8, val []byte) {
		if ok || id != IEVendorSpecific || len(val) < 4 {
			return
		}
		if val[0] == oui[0] && val[1] == oui[1] && val[2] == oui[2] && val[3] == ouiType {
			found, ok = val, true
		}
	})
	if !ok {
		return nil, ErrIENotFound
	}
	return found, nil
}
