package iax2

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"time"
)

// Local call numbers used on the two synthetic replies the call-token
// gate may send before any transaction exists (spec.md §4.8, ported from
// engine.cpp's IAX2_CALLTOKEN_REJ_CALLNO / IAX2_CALLTOKEN_CALLNO, both 1).
const (
	CallTokenRejCallNo = 1
	CallTokenCallNo    = 1
)

// buildSecretDigest reproduces buildSecretDigest() in engine.cpp:
// MD5(host || secret || port || t), hex-encoded.
func buildSecretDigest(secret string, t int64, addr *net.UDPAddr) string {
	var sb strings.Builder
	sb.WriteString(addr.IP.String())
	sb.WriteString(secret)
	sb.WriteString(strconv.Itoa(addr.Port))
	sb.WriteString(strconv.FormatInt(t, 10))
	sum := md5.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// buildAddrSecret builds a time-signed secret: digest + "." + now_sec,
// ported from IAXEngine::buildAddrSecret.
func buildAddrSecret(secret string, addr *net.UDPAddr, now time.Time) string {
	t := now.Unix()
	return fmt.Sprintf("%s.%d", buildSecretDigest(secret, t, addr), t)
}

// addrSecretAge decodes a secret built by buildAddrSecret and returns its
// age in seconds, or -1 if the digest does not match (ported from
// IAXEngine::addrSecretAge).
func addrSecretAge(buf string, secret string, addr *net.UDPAddr, now time.Time) int {
	pos := strings.LastIndexByte(buf, '.')
	if pos < 1 {
		return -1
	}
	t, err := strconv.ParseInt(buf[pos+1:], 10, 64)
	if err != nil {
		return -1
	}
	want := buildSecretDigest(secret, t, addr)
	if want != buf[:pos] {
		return -1
	}
	return int(now.Unix() - t)
}

// synthesizeSecret mirrors the engine constructor's fallback when no
// calltoken_secret is configured: three 32-bit chunks of
// Random::random() ^ Time::now().
func synthesizeSecret() string {
	var sb strings.Builder
	now := uint32(time.Now().UnixNano())
	for i := 0; i < 3; i++ {
		sb.WriteString(strconv.FormatUint(uint64(rand.Uint32()^now), 10))
	}
	return sb.String()
}

// CallTokenResult is the outcome of a call-token check (spec.md §4.8).
type CallTokenResult int

const (
	CallTokenAccept CallTokenResult = iota
	CallTokenRejectMissing
	CallTokenDropMissing
	CallTokenIssued
	CallTokenInvalid
)

// checkCallToken reproduces IAXEngine::checkCallToken's three branches:
// missing IE, empty IE (mint one), populated IE (verify age).
// reply, when non-nil, is the frame the caller must send back to addr.
func (e *Engine) checkCallToken(addr *net.UDPAddr, full *FullFrame, srcCallNo uint16) (result CallTokenResult, reply *Frame) {
	if !e.cfg.CallTokenIn {
		return CallTokenAccept, nil
	}
	var ct IE
	var ok bool
	if full.IEs != nil {
		ct, ok = full.IEs.Get(IECallToken)
	}
	if !ok {
		if e.cfg.CallTokenRejectMissing {
			ies := &IEList{}
			ies.AppendString(IECauseText, "CALLTOKEN support required")
			return CallTokenRejectMissing, NewFullFrame(FrameTypeIAX, uint8(IAXControlReject),
				CallTokenRejCallNo, srcCallNo, 0, 1, 2, ies)
		}
		if e.cfg.ShowCallTokenFailures {
			e.log.Info().Str("addr", addr.String()).Msg("dropping frame with no call token")
		}
		return CallTokenDropMissing, nil
	}
	if len(ct.Data) > 0 {
		age := addrSecretAge(string(ct.Data), e.secret, addr, time.Now())
		if age >= 0 && age <= e.cfg.CallTokenAge {
			return CallTokenAccept, nil
		}
		if e.cfg.ShowCallTokenFailures {
			e.log.Info().Str("addr", addr.String()).Int("age", age).Msg("dropping frame with invalid or stale call token")
		}
		return CallTokenInvalid, nil
	}
	secret := buildAddrSecret(e.secret, addr, time.Now())
	ies := &IEList{}
	ies.Append(IECallToken, []byte(secret))
	return CallTokenIssued, NewFullFrame(FrameTypeIAX, uint8(IAXControlCallToken),
		CallTokenCallNo, srcCallNo, 0, 1, 1, ies)
}
