package transcribe

import (
	"reflect"
	"testing"

	"github.com/masubs/masubs/internal/subtitle"
)

func TestParseVerboseJSONResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []subtitle.Segment
		wantErr bool
	}{
		{
			name: "segments kept with their timing",
			raw: `{"text": "Bonjour. Ça va?", "language": "fr", "duration": 4.2,
				"segments": [
					{"id": 0, "start": 0.4, "end": 1.9, "text": " Bonjour.", "no_speech_prob": 0.01},
					{"id": 1, "start": 2.1, "end": 4.2, "text": " Ça va?", "avg_logprob": -0.3}
				]}`,
			want: []subtitle.Segment{
				{Start: 0.4, End: 1.9, Text: "Bonjour."},
				{Start: 2.1, End: 4.2, Text: "Ça va?"},
			},
		},
		{
			name: "blank segments dropped",
			raw: `{"text": "ok", "duration": 3,
				"segments": [
					{"start": 0, "end": 1, "text": "  "},
					{"start": 1, "end": 3, "text": "ok"}
				]}`,
			want: []subtitle.Segment{{Start: 1, End: 3, Text: "ok"}},
		},
		{
			name: "no segments falls back to the whole text",
			raw:  `{"text": " one long line ", "segments": null, "duration": 12.25}`,
			want: []subtitle.Segment{{Start: 0, End: 12.25, Text: "one long line"}},
		},
		{name: "empty body", raw: "", wantErr: true},
		{name: "truncated json", raw: `{"segments": [`, wantErr: true},
		{name: "nothing transcribed", raw: `{"text": "", "segments": [], "duration": 0}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVerboseJSONResponse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestNewOpenAIRecognizerRequiresKey(t *testing.T) {
	if _, err := NewOpenAIRecognizer(Options{}); err == nil {
		t.Fatal("expected error without an API key")
	}
}
