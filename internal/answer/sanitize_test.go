package answer

import "testing"

func TestStripMarkup(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text untouched", "plain text untouched"},
		{"<b>bold</b> claim", "bold claim"},
		{"<p>DGAT1 encodes an enzyme.</p><p>Second paragraph.</p>", "DGAT1 encodes an enzyme.Second paragraph."},
		{"fat content &amp; protein yield", "fat content & protein yield"},
		{"<script>alert(1)</script>trailing", "alert(1)trailing"},
		{"", ""},
		{"A &lt; B", "A < B"},
	}

	for _, tc := range cases {
		if got := stripMarkup(tc.in); got != tc.want {
			t.Errorf("stripMarkup(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
