package listutil

import (
	"net/url"
	"testing"
)

var vogSortKeys = SortKeys{Column: "orderby", Direction: "order"}

// TestParsePageParams_Defaults verifies default page params when no query values provided.
func TestParsePageParams_Defaults(t *testing.T) {
	p := ParsePageParams(url.Values{})
	if p.Page != 1 {
		t.Errorf("expected page 1, got %d", p.Page)
	}
	if p.PerPage != DefaultPerPage {
		t.Errorf("expected per_page %d, got %d", DefaultPerPage, p.PerPage)
	}
}

// TestParsePageParams_Valid verifies correct parsing of valid page and per_page values.
func TestParsePageParams_Valid(t *testing.T) {
	p := ParsePageParams(url.Values{"page": {"3"}, "per_page": {"100"}})
	if p.Page != 3 {
		t.Errorf("expected page 3, got %d", p.Page)
	}
	if p.PerPage != 100 {
		t.Errorf("expected per_page 100, got %d", p.PerPage)
	}
}

// TestParsePageParams_Fallbacks verifies out-of-range values fall back to defaults.
func TestParsePageParams_Fallbacks(t *testing.T) {
	p := ParsePageParams(url.Values{"page": {"-1"}, "per_page": {"25"}})
	if p.Page != 1 {
		t.Errorf("expected page 1 for negative input, got %d", p.Page)
	}
	if p.PerPage != DefaultPerPage {
		t.Errorf("expected default per_page %d for invalid value, got %d", DefaultPerPage, p.PerPage)
	}
}

// TestParseSortParams verifies column and direction parsing.
func TestParseSortParams(t *testing.T) {
	allowed := []string{"name", "vog_date"}
	tests := []struct {
		name    string
		q       url.Values
		want    SortParams
		wantErr bool
	}{
		{"defaults", url.Values{}, SortParams{Sort: "", Dir: "asc"}, false},
		{"column and desc", url.Values{"orderby": {"vog_date"}, "order": {"desc"}}, SortParams{Sort: "vog_date", Dir: "desc"}, false},
		{"upper case direction", url.Values{"orderby": {"name"}, "order": {"DESC"}}, SortParams{Sort: "name", Dir: "desc"}, false},
		{"unknown column", url.Values{"orderby": {"password"}}, SortParams{}, true},
		{"unknown direction", url.Values{"order": {"sideways"}}, SortParams{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSortParams(tt.q, vogSortKeys, allowed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

// TestNewPageInfo verifies pagination metadata calculation.
func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		perPage    int
		total      int
		wantPages  int
		wantPage   int
		wantOffset int
	}{
		{"basic", 1, 20, 85, 5, 1, 0},
		{"page2", 2, 20, 85, 5, 2, 20},
		{"lastPage", 5, 20, 85, 5, 5, 80},
		{"pageBeyondTotal", 10, 20, 85, 5, 5, 80},
		{"emptyList", 1, 20, 0, 1, 1, 0},
		{"exactFit", 1, 10, 10, 1, 1, 0},
		{"zeroPerPage", 1, 0, 10, 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := NewPageInfo(tt.page, tt.perPage, tt.total)
			if pi.TotalPages != tt.wantPages {
				t.Errorf("TotalPages: got %d, want %d", pi.TotalPages, tt.wantPages)
			}
			if pi.Page != tt.wantPage {
				t.Errorf("Page: got %d, want %d", pi.Page, tt.wantPage)
			}
			if pi.Offset() != tt.wantOffset {
				t.Errorf("Offset: got %d, want %d", pi.Offset(), tt.wantOffset)
			}
		})
	}
}

// TestSlice verifies page windows over a slice.
func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	got := Slice(items, NewPageInfo(2, 2, len(items)))
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("page 2: got %v", got)
	}
	got = Slice(items, NewPageInfo(3, 2, len(items)))
	if len(got) != 1 || got[0] != 5 {
		t.Errorf("last page: got %v", got)
	}
	got = Slice([]int{}, NewPageInfo(1, 10, 0))
	if got == nil || len(got) != 0 {
		t.Errorf("empty: got %#v, want empty non-nil", got)
	}
}
