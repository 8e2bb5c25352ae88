package chapters

import "testing"

func TestExtractCompanyName(t *testing.T) {
	const indexURL = "https://www1.hkexnews.hk/listedco/listconews/sehk/2023/0630/10123456_c.htm"

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "heading",
			html: `<html><body><h1>德林國際有限公司</h1></body></html>`,
			want: "德林國際有限公司",
		},
		{
			name: "title element with exchange boilerplate",
			html: `<html><head><title>德林國際有限公司 - HKEXnews</title></head><body></body></html>`,
			want: "德林國際有限公司",
		},
		{
			name: "company cell",
			html: `<html><body><table><tr><td class="company">Acme Holdings Limited</td></tr></table></body></html>`,
			want: "Acme Holdings Limited",
		},
		{
			name: "heading wins over title",
			html: `<html><head><title>other</title></head><body><h1>Acme Holdings</h1></body></html>`,
			want: "Acme Holdings",
		},
		{
			name: "nothing extractable",
			html: `<html><body></body></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCompanyName(indexURL, tt.html); got != tt.want {
				t.Errorf("ExtractCompanyName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanCompanyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Acme   Holdings  ", "Acme Holdings"},
		{"Acme Holdings - HKEXnews", "Acme Holdings"},
		{"德林國際 披露易", "德林國際"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := cleanCompanyName(tt.in); got != tt.want {
			t.Errorf("cleanCompanyName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
