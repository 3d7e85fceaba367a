package bot

import (
	"errors"
	"testing"

	domerrors "github.com/garyellow/buscacursos-bot-go/internal/errors"
)

func TestAction_Encode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		action Action
		want   string
	}{
		{GoToPage(2), `{"i":2}`},
		{GoToPage(0), `{"i":0}`},
		{Command("course_IIC2233_2"), `{"c":"course_IIC2233_2"}`},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			if got := tt.action.Encode(); got != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
			decoded, err := DecodeAction(tt.want)
			if err != nil {
				t.Fatalf("DecodeAction(%s) error = %v", tt.want, err)
			}
			if decoded != tt.action {
				t.Errorf("DecodeAction(%s) = %+v, want %+v", tt.want, decoded, tt.action)
			}
		})
	}
}

func TestDecodeAction_Invalid(t *testing.T) {
	t.Parallel()
	payloads := []string{
		"",
		"next",
		`{}`,
		`{"i":"2"}`,
		`{"i":1,"c":"start"}`,
		`{"c":""}`,
		`{"x":1}`,
		`{"i":1}{"i":2}`,
		"course:detail$1",
	}
	for _, payload := range payloads {
		t.Run(payload, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeAction(payload)
			if !errors.Is(err, domerrors.ErrInvalidInput) {
				t.Errorf("DecodeAction(%q) error = %v, want ErrInvalidInput", payload, err)
			}
		})
	}
}
