package codec

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVectorString_Base64AndArrayAgree(t *testing.T) {
	text := `{"title":"Lisbon Live","location":"Lisbon"}`
	b64, _ := json.Marshal(base64.StdEncoding.EncodeToString([]byte(text)))

	arr := make([]int, 0, len(text))
	for _, c := range []byte(text) {
		arr = append(arr, int(c))
	}
	arrJSON, _ := json.Marshal(arr)

	fromB64 := DecodeVectorString(b64)
	fromArr := DecodeVectorString(arrJSON)

	assert.Equal(t, text, fromB64)
	assert.Equal(t, fromB64, fromArr)
}

func TestDecodeVectorString_Edges(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"absent", ``, ""},
		{"null", `null`, ""},
		{"empty string", `""`, ""},
		{"empty array", `[]`, ""},
		{"hex", `"0x6869"`, "hi"},
		{"unpadded base64", `"aGk"`, "hi"},
		{"not base64 kept verbatim", `"ipfs://bafy demo"`, "ipfs://bafy demo"},
		{"out of range array", `[104, 300]`, ""},
		{"unicode", `[226, 130, 172]`, "€"},
		{"invalid utf8", `[255]`, "�"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeVectorString(json.RawMessage(tt.raw)))
		})
	}
}

func TestDecodeVectorBytes_Errors(t *testing.T) {
	_, err := DecodeVectorBytes(json.RawMessage(`[1, -1]`))
	assert.Error(t, err)

	_, err = DecodeVectorBytes(json.RawMessage(`{"a":1}`))
	assert.Error(t, err)

	b, err := DecodeVectorBytes(json.RawMessage(`[1,2,3]`))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
}

func TestEncodeVectorString(t *testing.T) {
	assert.Equal(t, []byte("ipfs://x"), EncodeVectorString("ipfs://x"))
}

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Metadata
	}{
		{"title only", `{"title":"Demo"}`, Metadata{Title: "Demo"}},
		{"not json", "not json", Metadata{Title: "not json"}},
		{"empty", "", Metadata{Title: UntitledEvent}},
		{"name fallback", `{"name":"Named"}`, Metadata{Title: "Named"}},
		{"no title", `{"location":"Rome"}`, Metadata{Title: UntitledEvent, Location: "Rome"}},
		{"null title uses name", `{"title":null,"name":"N"}`, Metadata{Title: "N"}},
		{"empty title kept", `{"title":""}`, Metadata{Title: ""}},
		{"numeric title", `{"title":2025}`, Metadata{Title: "2025"}},
		{"falsy optionals dropped", `{"title":"T","detail":"","tiers":0,"description":false}`, Metadata{Title: "T"}},
		{"array", `[1,2]`, Metadata{Title: UntitledEvent}},
		{"json number", `42`, Metadata{Title: "42"}},
		{
			"full",
			`{"title":"Suiven Showcase","location":"Lisbon, Portugal","detail":"Apr 12","tiers":"VIP · Pro","description":"Drop"}`,
			Metadata{Title: "Suiven Showcase", Location: "Lisbon, Portugal", Detail: "Apr 12", Tiers: "VIP · Pro", Description: "Drop"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMetadata(tt.raw))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "", FormatTimestampIn("", time.UTC))
	assert.Equal(t, "", FormatTimestampIn("NaN", time.UTC))
	assert.Equal(t, "", FormatTimestampIn("tomorrow", time.UTC))
	assert.Equal(t, "4/12/2025, 6:00:00 PM", FormatTimestampIn("1744480800000", time.UTC))
	assert.Equal(t, "1/1/1970, 12:00:00 AM", FormatTimestampIn("0", time.UTC))
}

func TestFormatMillis(t *testing.T) {
	assert.Equal(t, "", FormatMillisIn(0, time.UTC))
	assert.Equal(t, "4/12/2025, 6:00:00 PM", FormatMillisIn(1744480800000, time.UTC))
	assert.NotEmpty(t, FormatMillis(1744480800000))
}
