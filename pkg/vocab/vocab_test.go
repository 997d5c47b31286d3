package vocab

import (
	"strings"
	"testing"
)

const sampleCSV = "\uFEFFid,word,reading,meanings,nuance,part,hint\n" +
	"1,あはれ,あわれ,\"しみじみとした趣，感動\",pos,名詞,もののあはれ\n" +
	"2,うし,うし,つらい、いやだ,NEG,形容詞,\n" +
	"x,bad,,meaning,pos,noun,\n" +
	"3,,,empty word,pos,noun,\n" +
	"4,いと,いと,,neutral,副詞,\n" +
	"5,をかし,おかし,趣がある|かわいらしい,Positive,varb,\n" +
	"1,あはれ,あわれ,重複,pos,謎の品詞,\n"

func TestParseNormalizesRows(t *testing.T) {
	entries, st, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if st.Rows != 7 {
		t.Errorf("expected 7 data rows, got %d", st.Rows)
	}
	if st.Dropped != 2 {
		t.Errorf("expected 2 dropped rows, got %d", st.Dropped)
	}
	if st.EmptyMeanings != 1 {
		t.Errorf("expected 1 empty-meaning row, got %d", st.EmptyMeanings)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.ID != 1 || first.Word != "あはれ" {
		t.Errorf("BOM not stripped from first row: %+v", first)
	}
	if got := strings.Join(first.Meanings, "/"); got != "しみじみとした趣/感動" {
		t.Errorf("meanings = %q", got)
	}
	if first.Class != ClassNoun || first.Nuance != NuancePositive {
		t.Errorf("class/nuance = %s/%s", first.Class, first.Nuance)
	}
	if first.Hint != "もののあはれ" {
		t.Errorf("hint = %q", first.Hint)
	}

	if entries[1].Nuance != NuanceNegative || entries[1].Class != ClassAdjective {
		t.Errorf("entry 2 normalized to %s/%s", entries[1].Class, entries[1].Nuance)
	}
	if len(entries[2].Meanings) != 0 || entries[2].Quizzable() {
		t.Errorf("entry 4 should be kept but not quizzable: %+v", entries[2])
	}
	if entries[3].Class != ClassVerb || len(entries[3].Meanings) != 2 {
		t.Errorf("entry 5 = %+v", entries[3])
	}
	// duplicate ids pass through, unknown class falls back to other
	if entries[4].ID != 1 || entries[4].Class != ClassOther {
		t.Errorf("duplicate entry = %+v", entries[4])
	}
}

func TestQuizzableFiltersEmptyMeanings(t *testing.T) {
	entries, _, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for _, e := range Quizzable(entries) {
		if len(e.Meanings) == 0 {
			t.Errorf("entry %d has no meanings but was kept", e.ID)
		}
	}
	if got := len(Quizzable(entries)); got != 4 {
		t.Errorf("expected 4 quizzable entries, got %d", got)
	}
}

func TestNormalizeClass(t *testing.T) {
	tests := []struct {
		in   string
		want Class
	}{
		{"動詞", ClassVerb},
		{" VERB ", ClassVerb},
		{"varb", ClassVerb},
		{"形容動詞", ClassAdjectiveNoun},
		{"連体詞", ClassAdnominal},
		{"説尾語", ClassSuffix},
		{"連語", ClassSetPhrase},
		{"固有名詞", ClassProperNoun},
		{"", ClassOther},
		{"???", ClassOther},
	}
	for _, tt := range tests {
		if got := NormalizeClass(tt.in); got != tt.want {
			t.Errorf("NormalizeClass(%q) = %s; want %s", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeNuance(t *testing.T) {
	tests := []struct {
		in   string
		want Nuance
	}{
		{"pos", NuancePositive},
		{"POSITIVE", NuancePositive},
		{"ネガ", NuanceNegative},
		{"Neg", NuanceNegative},
		{"neutral", NuanceNeutral},
		{"meh", NuanceNeutral},
		{"", NuanceNeutral},
	}
	for _, tt := range tests {
		if got := NormalizeNuance(tt.in); got != tt.want {
			t.Errorf("NormalizeNuance(%q) = %s; want %s", tt.in, got, tt.want)
		}
	}
}

func TestSplitMeanings(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a,b", []string{"a", "b"}},
		{"趣，感動、あはれ|しみじみ", []string{"趣", "感動", "あはれ", "しみじみ"}},
		{" 、 ,", []string{}},
		{"あれこれ・さまざま", []string{"あれこれ・さまざま"}},
		{"　全角　", []string{"全角"}},
	}
	for _, tt := range tests {
		got := SplitMeanings(tt.in)
		if strings.Join(got, "/") != strings.Join(tt.want, "/") || len(got) != len(tt.want) {
			t.Errorf("SplitMeanings(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestMeaningReadingsKeepPositions(t *testing.T) {
	csv := "id,word,meanings,mean_reading\n7,をかし,\"趣がある,かわいい\",\",かわいい\"\n"
	entries, _, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	r := entries[0].MeaningReadings
	if len(r) != 2 || r[0] != "" || r[1] != "かわいい" {
		t.Errorf("MeaningReadings = %q", r)
	}
}

type fakeHistory map[int64]bool

func (h fakeHistory) Seen(id int64) bool { _, ok := h[id]; return ok }
func (h fakeHistory) LastCorrect(id int64) (bool, bool) {
	ok, seen := h[id]
	return ok, seen
}

func TestFilterTabs(t *testing.T) {
	entries := []Entry{
		{ID: 1, Word: "あはれ", Class: ClassNoun, Nuance: NuancePositive, Meanings: []string{"趣"}},
		{ID: 2, Word: "うし", Class: ClassAdjective, Nuance: NuanceNegative, Meanings: []string{"つらい"}},
		{ID: 3, Word: "いと", Class: ClassAdverb, Nuance: NuanceNeutral, Meanings: []string{"とても"}},
	}
	h := fakeHistory{1: true, 2: false}

	if got := (Filter{Tab: TabNew}).Apply(entries, h); len(got) != 1 || got[0].ID != 3 {
		t.Errorf("new tab = %+v", got)
	}
	if got := (Filter{Tab: TabReview}).Apply(entries, h); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("review tab = %+v", got)
	}
	if got := (Filter{Class: ClassAdverb}).Apply(entries, nil); len(got) != 1 || got[0].ID != 3 {
		t.Errorf("class filter = %+v", got)
	}
	if got := (Filter{Query: "つら"}).Apply(entries, nil); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("query filter = %+v", got)
	}
	if got := (Filter{}).Apply(entries, nil); len(got) != 3 {
		t.Errorf("empty filter returned %d entries", len(got))
	}
}
