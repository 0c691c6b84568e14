package params

import "strings"

// GTIndicator is the Global Title Indicator subtype, selecting which of
// {NAI, TT, NP, ES} accompany the digit string. ITU defines four forms,
// ANSI defines two.
type GTIndicator uint8

const (
	GTINaiOnly   GTIndicator = 0x01 // ITU: NAI only
	GTITTOnly    GTIndicator = 0x02 // ITU/ANSI: TT only (same wire shape both variants)
	GTITTNPES    GTIndicator = 0x03 // ITU: TT+NP+ES
	GTITTNPESNai GTIndicator = 0x04 // ITU: TT+NP+ES+NAI

	// GTIAnsiTTNPES aliases GTINaiOnly's wire value: ANSI reuses GTI 0x01
	// for TT+NP+ES where ITU uses it for NAI-only. The two can only be
	// told apart by the point-code variant in force, never by the GTI
	// octet alone, so GlobalTitle.Variant carries that context.
	GTIAnsiTTNPES GTIndicator = 0x01
)

// GlobalTitle carries the subset of {nature-of-address, translation-type,
// numbering-plan, encoding-scheme, digits} selected by its Indicator. Variant
// disambiguates GTI 0x01, which means NAI-only under ITU and TT+NP+ES under
// ANSI (spec.md §3.1/§4.2 leave this to the point-code type already carried
// by the enclosing PartyAddress).
type GlobalTitle struct {
	Variant         PointCodeType
	Indicator       GTIndicator
	NatureOfAddress uint8 // 7 bits, ITU GTI 0x01/0x04 only
	TranslationType uint8
	NumberingPlan   uint8 // 4 bits
	EncodingScheme  uint8 // 4 bits; 1 = BCD odd, 2 = BCD even
	OddDigits       bool
	Digits          string
}

// ansiTTNPES reports whether g's GTI 0x01 should be read as ANSI's
// TT+NP+ES shape rather than ITU's NAI-only shape.
func (g *GlobalTitle) ansiTTNPES() bool {
	return g.Indicator == GTINaiOnly && g.Variant == PointCodeANSI
}

// bcdUnknown maps nibble 0xB/0xC to the digit '?' (treated as "unknown"),
// used by default per spec.md §4.2.
var bcdUnknown = [16]byte{
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'?', '?', '?', '*', '#', 0,
}

// bcdAll exposes every 0xA-0xE nibble as a literal digit, used when
// ignore-unknown-digits is false.
var bcdAll = [16]byte{
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'A', 'B', 'C', 'D', 'E', 0,
}

func nibbleToDigit(n byte, ignoreUnknown bool) byte {
	if ignoreUnknown {
		return bcdUnknown[n&0x0F]
	}
	return bcdAll[n&0x0F]
}

func digitToNibble(d byte) byte {
	switch {
	case d >= '0' && d <= '9':
		return d - '0'
	case d == '*':
		return 0x0D
	case d == '#':
		return 0x0E
	case d >= 'A' && d <= 'E':
		return d - 'A' + 0x0A
	case d == '?':
		return 0x0B
	default:
		return 0x0F
	}
}

// EncodeDigits packs the GT digit string into semi-octets, low nibble
// first, matching Q.713 4.4.3.
func EncodeDigits(digits string) []byte {
	n := len(digits)
	out := make([]byte, (n+1)/2)
	for i, d := range []byte(digits) {
		nib := digitToNibble(d)
		if i%2 == 0 {
			out[i/2] = nib
		} else {
			out[i/2] |= nib << 4
		}
	}
	return out
}

// DecodeDigits unpacks a semi-octet digit buffer. count is the number of
// digits to extract (odd-count aware); ignoreUnknown selects the
// 0xB/0xC-as-unknown table.
func DecodeDigits(b []byte, count int, ignoreUnknown bool) string {
	var sb strings.Builder
	for i := 0; i < count; i++ {
		oct := b[i/2]
		var nib byte
		if i%2 == 0 {
			nib = oct & 0x0F
		} else {
			nib = (oct >> 4) & 0x0F
		}
		sb.WriteByte(nibbleToDigit(nib, ignoreUnknown))
	}
	return sb.String()
}

// MarshalLen returns the GT's wire length, including the indicator-
// dependent header (one to three octets) but excluding the address-level
// length octet.
func (g *GlobalTitle) MarshalLen() int {
	l := 1 // GTI octet itself is carried by the caller (PartyAddress); here we size the header+digits
	switch {
	case g.ansiTTNPES():
		l = 2
	case g.Indicator == GTINaiOnly:
		l = 1
	case g.Indicator == GTITTOnly:
		l = 1
	case g.Indicator == GTITTNPES:
		l = 2
	case g.Indicator == GTITTNPESNai:
		l = 3
	}
	l += len(EncodeDigits(g.Digits))
	return l
}

// Marshal writes the GT header (per Indicator) followed by packed digits.
// It sets OddDigits, and a BCD EncodingScheme (1 or 2), from the digit count.
func (g *GlobalTitle) Marshal(b []byte) (int, error) {
	if len(b) < g.MarshalLen() {
		return 0, ErrTooShort
	}
	g.OddDigits = len(g.Digits)%2 == 1
	if g.EncodingScheme == 1 || g.EncodingScheme == 2 {
		g.EncodingScheme = 2
		if g.OddDigits {
			g.EncodingScheme = 1
		}
	}
	n := 0
	switch {
	case g.ansiTTNPES():
		b[n] = g.TranslationType
		n++
		es := g.EncodingScheme & 0x0F
		b[n] = (es << 4) | (g.NumberingPlan & 0x0F)
		n++
	case g.Indicator == GTINaiOnly:
		nai := g.NatureOfAddress & 0x7F
		if g.OddDigits {
			nai |= 0x80
		}
		b[n] = nai
		n++
	case g.Indicator == GTITTOnly:
		b[n] = g.TranslationType
		n++
	case g.Indicator == GTITTNPES:
		b[n] = g.TranslationType
		n++
		es := g.EncodingScheme & 0x0F
		b[n] = (es << 4) | (g.NumberingPlan & 0x0F)
		n++
	case g.Indicator == GTITTNPESNai:
		b[n] = g.TranslationType
		n++
		es := g.EncodingScheme & 0x0F
		b[n] = (es << 4) | (g.NumberingPlan & 0x0F)
		n++
		b[n] = g.NatureOfAddress & 0x7F
		n++
	default:
		return 0, ErrInvalidSubtype
	}
	digs := EncodeDigits(g.Digits)
	copy(b[n:], digs)
	return n + len(digs), nil
}

// ParseGlobalTitle decodes a GT of the given indicator subtype from b,
// which must contain exactly the GT header+digits (no trailing data).
// variant selects how GTI 0x01 is read (see GlobalTitle.Variant).
func ParseGlobalTitle(b []byte, gti GTIndicator, variant PointCodeType, ignoreUnknown bool) (*GlobalTitle, error) {
	g := &GlobalTitle{Indicator: gti, Variant: variant}
	if len(b) < 1 {
		return nil, ErrTooShort
	}
	n := 0
	odd := false
	switch {
	case g.ansiTTNPES():
		if len(b) < 2 {
			return nil, ErrTooShort
		}
		g.TranslationType = b[0]
		g.NumberingPlan = b[1] & 0x0F
		g.EncodingScheme = (b[1] >> 4) & 0x0F
		odd = g.EncodingScheme == 1
		n = 2
	case gti == GTINaiOnly:
		g.NatureOfAddress = b[0] & 0x7F
		odd = b[0]&0x80 != 0
		n = 1
	case gti == GTITTOnly:
		g.TranslationType = b[0]
		n = 1
	case gti == GTITTNPES:
		if len(b) < 2 {
			return nil, ErrTooShort
		}
		g.TranslationType = b[0]
		g.NumberingPlan = b[1] & 0x0F
		g.EncodingScheme = (b[1] >> 4) & 0x0F
		odd = g.EncodingScheme == 1
		n = 2
	case gti == GTITTNPESNai:
		if len(b) < 3 {
			return nil, ErrTooShort
		}
		g.TranslationType = b[0]
		g.NumberingPlan = b[1] & 0x0F
		g.EncodingScheme = (b[1] >> 4) & 0x0F
		g.NatureOfAddress = b[2] & 0x7F
		odd = g.EncodingScheme == 1
		n = 3
	default:
		return nil, ErrInvalidSubtype
	}
	g.OddDigits = odd
	digitBytes := b[n:]
	count := len(digitBytes) * 2
	if odd && count > 0 {
		count--
	}
	g.Digits = DecodeDigits(digitBytes, count, ignoreUnknown)
	return g, nil
}
