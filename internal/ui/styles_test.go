package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessagePrefixes(t *testing.T) {
	cases := []struct {
		name   string
		fn     func(string) string
		prefix string
	}{
		{"success", Success, "✓"},
		{"warn", Warn, "⚠"},
		{"err", Err, "✗"},
		{"info", Info, "ℹ"},
		{"hint", Hint, "💡"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := tc.fn("deposit confirmed")
			assert.Contains(t, out, tc.prefix)
			assert.Contains(t, out, "deposit confirmed")
		})
	}
}

func TestInfoDifferentFromHint(t *testing.T) {
	assert.NotEqual(t, Info("message"), Hint("message"))
}

func TestFormattersKeepText(t *testing.T) {
	formatters := map[string]func(string) string{
		"Addr":      Addr,
		"Val":       Val,
		"Meta":      Meta,
		"ChainName": ChainName,
	}
	for name, fn := range formatters {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, fn("0x5"), "0x5")
		})
	}
}

func TestKey(t *testing.T) {
	assert.Contains(t, Key("d"), "[d]")
}

func TestDangerBox(t *testing.T) {
	assert.Empty(t, DangerBox(""))

	out := DangerBox("Please select Goerli network")
	assert.Contains(t, out, "Please select Goerli network")
	assert.Contains(t, out, "╭")
}

func TestTruncateAddr(t *testing.T) {
	assert.Equal(t, "", TruncateAddr(""))
	assert.Equal(t, "0x1234", TruncateAddr("0x1234"))
	assert.Equal(t, "0x12345678", TruncateAddr("0x12345678"))

	addr := "0x933033cb97Df7fb4b32453b4aaa6776C4dC8Cee0"
	assert.Equal(t, "0x9330…Cee0", TruncateAddr(addr))
}

func TestBanner(t *testing.T) {
	out := Banner()
	assert.Contains(t, out, "██████╗")
	assert.Contains(t, out, "Deposit ether, get ponzi")
}

func TestSpinnerFrameWraps(t *testing.T) {
	assert.Equal(t, SpinnerFrame(0), SpinnerFrame(len(spinnerFrames)))
	assert.NotEqual(t, SpinnerFrame(0), SpinnerFrame(1))
	assert.Equal(t, SpinnerFrame(3), SpinnerFrame(-3))
}
