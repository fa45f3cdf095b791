package domain

import (
	"maps"
	"slices"
	"strings"
)

type RtcpFeedback struct {
	Type      string `json:"type"`
	Parameter string `json:"parameter,omitempty"`
}

// RtpCodecCapability is one codec a router or an endpoint can handle.
type RtpCodecCapability struct {
	Kind                 MediaKind      `json:"kind"`
	MimeType             string         `json:"mimeType"`
	PreferredPayloadType uint8          `json:"preferredPayloadType,omitempty"`
	ClockRate            int            `json:"clockRate"`
	Channels             int            `json:"channels,omitempty"`
	Parameters           map[string]any `json:"parameters,omitempty"`
	RtcpFeedback         []RtcpFeedback `json:"rtcpFeedback,omitempty"`
}

type RtpHeaderExtension struct {
	Kind             MediaKind `json:"kind"`
	URI              string    `json:"uri"`
	PreferredID      int       `json:"preferredId"`
	PreferredEncrypt bool      `json:"preferredEncrypt,omitempty"`
	Direction        string    `json:"direction,omitempty"`
}

type RtpCapabilities struct {
	Codecs           []RtpCodecCapability `json:"codecs"`
	HeaderExtensions []RtpHeaderExtension `json:"headerExtensions,omitempty"`
}

type RtpCodecParameters struct {
	MimeType     string         `json:"mimeType"`
	PayloadType  uint8          `json:"payloadType"`
	ClockRate    int            `json:"clockRate"`
	Channels     int            `json:"channels,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	RtcpFeedback []RtcpFeedback `json:"rtcpFeedback,omitempty"`
}

type RtpHeaderExtensionParameters struct {
	URI        string         `json:"uri"`
	ID         int            `json:"id"`
	Encrypt    bool           `json:"encrypt,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type RtpEncodingParameters struct {
	Ssrc            uint32 `json:"ssrc,omitempty"`
	Rid             string `json:"rid,omitempty"`
	MaxBitrate      int    `json:"maxBitrate,omitempty"`
	Dtx             bool   `json:"dtx,omitempty"`
	ScalabilityMode string `json:"scalabilityMode,omitempty"`
}

type RtcpParameters struct {
	Cname       string `json:"cname,omitempty"`
	ReducedSize bool   `json:"reducedSize,omitempty"`
}

// RtpParameters describe one concrete stream: what a producer sends or a consumer receives.
type RtpParameters struct {
	Mid              string                         `json:"mid,omitempty"`
	Codecs           []RtpCodecParameters           `json:"codecs"`
	HeaderExtensions []RtpHeaderExtensionParameters `json:"headerExtensions,omitempty"`
	Encodings        []RtpEncodingParameters        `json:"encodings,omitempty"`
	Rtcp             RtcpParameters                 `json:"rtcp,omitempty"`
}

// IsRtx reports whether the codec is a retransmission stream rather than media.
func IsRtx(mime string) bool {
	return strings.HasSuffix(strings.ToLower(mime), "/rtx")
}

// Matches compares the fields that decide whether two ends can exchange this codec.
func (c RtpCodecParameters) Matches(want RtpCodecCapability) bool {
	if !strings.EqualFold(c.MimeType, want.MimeType) || c.ClockRate != want.ClockRate {
		return false
	}
	if KindOfMime(c.MimeType) == KindAudio && channelsOf(c.Channels) != channelsOf(want.Channels) {
		return false
	}
	return true
}

func channelsOf(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

// Find returns the first capability matching the codec.
func (c RtpCapabilities) Find(codec RtpCodecParameters) (RtpCodecCapability, bool) {
	for _, want := range c.Codecs {
		if codec.Matches(want) {
			return want, true
		}
	}
	return RtpCodecCapability{}, false
}

// Supports reports whether any codec of the given kind is declared.
func (c RtpCapabilities) Supports(kind MediaKind) bool {
	return slices.ContainsFunc(c.Codecs, func(want RtpCodecCapability) bool {
		return capKind(want) == kind
	})
}

func capKind(want RtpCodecCapability) MediaKind {
	if want.Kind != "" {
		return want.Kind
	}
	return KindOfMime(want.MimeType)
}

func (c RtpCapabilities) Clone() RtpCapabilities {
	out := RtpCapabilities{
		Codecs:           make([]RtpCodecCapability, len(c.Codecs)),
		HeaderExtensions: slices.Clone(c.HeaderExtensions),
	}
	for i, codec := range c.Codecs {
		codec.Parameters = maps.Clone(codec.Parameters)
		codec.RtcpFeedback = slices.Clone(codec.RtcpFeedback)
		out.Codecs[i] = codec
	}
	return out
}

func (p RtpParameters) Clone() RtpParameters {
	out := p
	out.Codecs = make([]RtpCodecParameters, len(p.Codecs))
	for i, codec := range p.Codecs {
		codec.Parameters = maps.Clone(codec.Parameters)
		codec.RtcpFeedback = slices.Clone(codec.RtcpFeedback)
		out.Codecs[i] = codec
	}
	out.HeaderExtensions = slices.Clone(p.HeaderExtensions)
	out.Encodings = slices.Clone(p.Encodings)
	return out
}

// MediaCodecs returns the codecs that carry media, skipping rtx entries.
func (p RtpParameters) MediaCodecs() []RtpCodecParameters {
	out := make([]RtpCodecParameters, 0, len(p.Codecs))
	for _, c := range p.Codecs {
		if !IsRtx(c.MimeType) {
			out = append(out, c)
		}
	}
	return out
}
