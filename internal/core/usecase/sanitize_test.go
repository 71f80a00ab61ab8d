package usecase

import "testing"

func TestSanitizeQueryText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "how many employees were hired", "how many employees were hired"},
		{"script block removed", "find resumes <script>alert(1)</script> now", "find resumes now"},
		{"html tags stripped", "show <b>all</b> contracts", "show all contracts"},
		{"javascript protocol removed", "open javascript:alert(1) page", "open alert(1) page"},
		{"data protocol removed", "load data:text/html,foo", "load text/html,foo"},
		{"double ampersand becomes and", "count employees && list departments", "count employees and list departments"},
		{"double pipe becomes or", "resumes || contracts", "resumes or contracts"},
		{"semicolon neutralized", "list employees; drop table", "list employees drop table"},
		{"backtick becomes quote", "find `admin` records", "find 'admin' records"},
		{"dollar removed", "salary over $50000", "salary over 50000"},
		{"null byte stripped", "count\x00 employees", "count employees"},
		{"whitespace collapsed", "  how   many\t employees ", "how many employees"},
		{"empty after sanitization", "<script>x</script>", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeQueryText(tc.in); got != tc.want {
				t.Errorf("sanitizeQueryText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeQueryTextEquivalence(t *testing.T) {
	a := normalizeQueryText(sanitizeQueryText("Please can you COUNT the employees?"))
	b := normalizeQueryText(sanitizeQueryText("count   the Employees?"))
	if a != b {
		t.Errorf("normalized forms differ: %q vs %q", a, b)
	}
}

func TestHashKeyIsStable(t *testing.T) {
	if hashKey("count employees") != hashKey("count employees") {
		t.Error("hashKey not deterministic")
	}
	if hashKey("count employees") == hashKey("count departments") {
		t.Error("distinct inputs collided")
	}
}
