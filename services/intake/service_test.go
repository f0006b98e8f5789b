package intake

import "testing"

func TestExtractJSONFromMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "json code fence",
			input: "```json\n{\"service_type\": \"plumbing\"}\n```",
			want:  `{"service_type": "plumbing"}`,
		},
		{
			name:  "bare code fence",
			input: "```\n{\"service_type\": \"plumbing\"}\n```",
			want:  `{"service_type": "plumbing"}`,
		},
		{
			name:  "no fence",
			input: `{"service_type": "plumbing"}`,
			want:  `{"service_type": "plumbing"}`,
		},
		{
			name:  "surrounding whitespace",
			input: "  \n{\"service_type\": \"plumbing\"}\n  ",
			want:  `{"service_type": "plumbing"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSONFromMarkdown(tt.input); got != tt.want {
				t.Errorf("ExtractJSONFromMarkdown() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateRequestID(t *testing.T) {
	s := &IntakeService{}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := s.GenerateRequestID()
		if len(id) != 24 {
			t.Fatalf("request id length = %d, want 24: %q", len(id), id)
		}
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}
