package policy

import "testing"

func TestSanitizeResponseRewritesProviderNames(t *testing.T) {
	out, changed := SanitizeResponse("Bro, Mistral AI thinks you should rest. Mistral agrees!")
	if !changed {
		t.Fatalf("expected changed=true")
	}
	want := "Bro, AI thinks you should rest. AI agrees!"
	if out != want {
		t.Fatalf("SanitizeResponse() = %q, want %q", out, want)
	}
}

func TestSanitizeResponseDropsMetaLeakSentences(t *testing.T) {
	in := "Yo legend! As an AI, I cannot feel hunger. But biryani is always the answer, no cap."
	out, changed := SanitizeResponse(in)
	if !changed {
		t.Fatalf("expected changed=true")
	}
	want := "Yo legend! But biryani is always the answer, no cap."
	if out != want {
		t.Fatalf("SanitizeResponse() = %q, want %q", out, want)
	}
}

func TestSanitizeResponseLeavesCleanTextAlone(t *testing.T) {
	in := "Full swag answer, bhai. What's next on your mind?"
	out, changed := SanitizeResponse(in)
	if changed {
		t.Fatalf("expected changed=false")
	}
	if out != in {
		t.Fatalf("SanitizeResponse() = %q, want unchanged", out)
	}
}

func TestSanitizeTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"Cyst Update"`, "Cyst Update"},
		{"  Business Plan!  ", "Business Plan"},
		{"The Great Biryani Debate", "The Great"},
		{"'Jugaad'", "Jugaad"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeTitle(tc.in); got != tc.want {
			t.Fatalf("SanitizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
