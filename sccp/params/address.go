package params

import "fmt"

// Address indicator bit layout (our own internal packing — spec.md §3.1
// only requires bit6 to carry the routing indicator and, for ITU, bit7 to
// be the reserved national-use bit; the remaining bits are ours to assign).
const (
	aiGTIMask    = 0x0F
	aiPCPresent  = 0x10
	aiSSNPresent = 0x20
	aiRouteOnSSN = 0x40 // spec.md §4.2: "Route-on-SSN sets bit 6 of the indicator"
	aiNational   = 0x80 // ITU only: "bit 7 is reserved national"
)

// RoutingIndicator selects how a PartyAddress is routed.
type RoutingIndicator uint8

const (
	RouteOnGT  RoutingIndicator = iota // route on Global Title
	RouteOnSSN                         // route on subsystem number
)

// PartyAddress is the called/calling party address parameter: a composite
// of {point code, SSN, global title} plus the indicators selecting which
// are present (spec.md §3.1).
type PartyAddress struct {
	Type      PointCodeType
	Routing   RoutingIndicator
	National  bool // ITU only
	PC        *PointCode
	SSN       *uint8
	GT        *GlobalTitle

	IgnoreUnknownDigits bool // false selects the 0xA-0xE nibble table
}

func (a *PartyAddress) indicator() uint8 {
	var ai uint8
	if a.GT != nil {
		ai |= uint8(a.GT.Indicator) & aiGTIMask
	}
	if a.PC != nil {
		ai |= aiPCPresent
	}
	if a.SSN != nil {
		ai |= aiSSNPresent
	}
	if a.Routing == RouteOnSSN {
		ai |= aiRouteOnSSN
	}
	if a.Type == PointCodeITU && a.National {
		ai |= aiNational
	}
	return ai
}

// MarshalLen returns the address's wire length (the AI octet through the
// end of the global title digits); it does not include the one-octet
// length prefix the codec's variable-parameter layout adds separately.
func (a *PartyAddress) MarshalLen() int {
	l := 1 // AI
	if a.PC != nil {
		l += a.Type.Octets()
	}
	if a.SSN != nil {
		l++
	}
	if a.GT != nil {
		l += a.GT.MarshalLen()
	}
	return l
}

// Marshal writes the address indicator, optional point code, optional
// SSN, then optional global title, in that order (spec.md §4.2).
func (a *PartyAddress) Marshal(b []byte) (int, error) {
	if len(b) < a.MarshalLen() {
		return 0, ErrTooShort
	}
	if a.GT != nil && a.GT.Indicator == 0 {
		return 0, ErrInvalidSubtype
	}
	n := 0
	b[n] = a.indicator()
	n++
	if a.PC != nil {
		m, err := a.PC.Marshal(b[n:])
		if err != nil {
			return 0, err
		}
		n += m
	}
	if a.SSN != nil {
		b[n] = *a.SSN
		n++
	}
	if a.GT != nil {
		m, err := a.GT.Marshal(b[n:])
		if err != nil {
			return 0, err
		}
		n += m
	}
	return n, nil
}

// Write is an alias of Marshal kept for parity with the teacher's
// params.PartyAddress.Write convention.
func (a *PartyAddress) Write(b []byte) (int, error) { return a.Marshal(b) }

// ParsePartyAddress decodes a PartyAddress, given the point-code variant in
// force for this SCCP instance.
func ParsePartyAddress(b []byte, pcType PointCodeType, ignoreUnknownDigits bool) (*PartyAddress, int, error) {
	if len(b) < 1 {
		return nil, 0, ErrTooShort
	}
	ai := b[0]
	a := &PartyAddress{
		Type:                pcType,
		IgnoreUnknownDigits: ignoreUnknownDigits,
	}
	if ai&aiRouteOnSSN != 0 {
		a.Routing = RouteOnSSN
	}
	if pcType == PointCodeITU {
		a.National = ai&aiNational != 0
	}
	n := 1
	if ai&aiPCPresent != 0 {
		pc, m, err := ParsePointCode(b[n:], pcType)
		if err != nil {
			return nil, 0, err
		}
		a.PC = &pc
		n += m
	}
	if ai&aiSSNPresent != 0 {
		if len(b) < n+1 {
			return nil, 0, ErrTooShort
		}
		ssn := b[n]
		a.SSN = &ssn
		n++
	}
	gti := GTIndicator(ai & aiGTIMask)
	if gti != 0 {
		gt, err := ParseGlobalTitle(b[n:], gti, pcType, ignoreUnknownDigits)
		if err != nil {
			return nil, 0, err
		}
		a.GT = gt
		n = len(b)
	}
	return a, n, nil
}

// ParseCalledPartyAddress and ParseCallingPartyAddress are thin aliases
// kept for call-site readability; both parties share the same wire shape.
func ParseCalledPartyAddress(b []byte, pcType PointCodeType, ignoreUnknownDigits bool) (*PartyAddress, int, error) {
	return ParsePartyAddress(b, pcType, ignoreUnknownDigits)
}

func ParseCallingPartyAddress(b []byte, pcType PointCodeType, ignoreUnknownDigits bool) (*PartyAddress, int, error) {
	return ParsePartyAddress(b, pcType, ignoreUnknownDigits)
}

// Address returns the GT digit string, or "" if there is no global title.
func (a *PartyAddress) Address() string {
	if a.GT == nil {
		return ""
	}
	return a.GT.Digits
}

// AddressWithDetails renders a human-readable summary for logging.
func (a *PartyAddress) AddressWithDetails() string {
	s := ""
	if a.PC != nil {
		s += fmt.Sprintf("PC=%s ", a.PC)
	}
	if a.SSN != nil {
		s += fmt.Sprintf("SSN=%d ", *a.SSN)
	}
	if a.GT != nil {
		s += fmt.Sprintf("GT=%s", a.GT.Digits)
	}
	return s
}
