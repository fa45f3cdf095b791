package domain

import (
	"strings"
	"testing"
)

func TestNewRoomID(t *testing.T) {
	tests := []struct {
		in      string
		want    RoomID
		wantErr bool
	}{
		{"lobby", "lobby", false},
		{"", "", true},
		{strings.Repeat("x", MaxRoomIDLen), RoomID(strings.Repeat("x", MaxRoomIDLen)), false},
		{strings.Repeat("x", MaxRoomIDLen+1), "", true},
	}
	for _, tt := range tests {
		got, err := NewRoomID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewRoomID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NewRoomID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKindOfMime(t *testing.T) {
	tests := map[string]MediaKind{
		"audio/opus": KindAudio,
		"VIDEO/VP8":  KindVideo,
		"":           "",
	}
	for mime, want := range tests {
		if got := KindOfMime(mime); got != want {
			t.Errorf("KindOfMime(%q) = %q, want %q", mime, got, want)
		}
	}
}

func TestCodecMatches(t *testing.T) {
	opus := RtpCodecParameters{MimeType: "audio/opus", ClockRate: 48000, Channels: 2}
	tests := []struct {
		name string
		want RtpCodecCapability
		ok   bool
	}{
		{"same", RtpCodecCapability{MimeType: "audio/OPUS", ClockRate: 48000, Channels: 2}, true},
		{"clock rate", RtpCodecCapability{MimeType: "audio/opus", ClockRate: 16000, Channels: 2}, false},
		{"channels", RtpCodecCapability{MimeType: "audio/opus", ClockRate: 48000, Channels: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := opus.Matches(tt.want); got != tt.ok {
				t.Errorf("Matches() = %v, want %v", got, tt.ok)
			}
		})
	}

	mono := RtpCodecParameters{MimeType: "audio/PCMU", ClockRate: 8000}
	if !mono.Matches(RtpCodecCapability{MimeType: "audio/PCMU", ClockRate: 8000, Channels: 1}) {
		t.Error("zero channels should match one")
	}
	vp8 := RtpCodecParameters{MimeType: "video/VP8", ClockRate: 90000, Channels: 3}
	if !vp8.Matches(RtpCodecCapability{MimeType: "video/vp8", ClockRate: 90000}) {
		t.Error("video channels should be ignored")
	}
}

func TestCapabilitiesClone(t *testing.T) {
	caps := RtpCapabilities{Codecs: []RtpCodecCapability{{
		Kind: KindVideo, MimeType: "video/VP8", ClockRate: 90000,
		Parameters: map[string]any{"x-google-start-bitrate": 1000},
	}}}
	cp := caps.Clone()
	cp.Codecs[0].Parameters["x-google-start-bitrate"] = 1
	cp.Codecs[0].MimeType = "video/H264"

	if caps.Codecs[0].Parameters["x-google-start-bitrate"] != 1000 || caps.Codecs[0].MimeType != "video/VP8" {
		t.Errorf("Clone() shares state: %+v", caps.Codecs[0])
	}
	if !caps.Supports(KindVideo) || caps.Supports(KindAudio) {
		t.Error("Supports() wrong")
	}
}

func TestMediaCodecsSkipsRtx(t *testing.T) {
	p := RtpParameters{Codecs: []RtpCodecParameters{
		{MimeType: "video/rtx", PayloadType: 97},
		{MimeType: "video/VP8", PayloadType: 96},
	}}
	got := p.MediaCodecs()
	if len(got) != 1 || got[0].PayloadType != 96 {
		t.Errorf("MediaCodecs() = %+v", got)
	}
}

func TestDirectionFor(t *testing.T) {
	if DirectionFor(true) != DirectionProducing || DirectionFor(false) != DirectionConsuming {
		t.Error("DirectionFor() mapping wrong")
	}
	if !TransportFailed.Terminal() || TransportConnected.Terminal() {
		t.Error("Terminal() wrong")
	}
}
