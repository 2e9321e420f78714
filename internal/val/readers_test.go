package val

import "testing"

func TestReadNumScenarios(t *testing.T) {
	cases := []struct {
		lexeme   string
		wantVal  float64
		wantUnit string
	}{
		{"12", 12, ""},
		{"-12.12345", -12.12345, ""},
		{"-12.123456789eV", -12.123456789, "eV"},
		{"10.2e3", 10200, ""},
		{"1E-2kW", 0.01, "kW"},
	}
	for _, c := range cases {
		n, err := ReadNum(c.lexeme)
		if err != nil {
			t.Fatalf("ReadNum(%q): %v", c.lexeme, err)
		}
		if n.Value != c.wantVal {
			t.Errorf("ReadNum(%q).Value = %v, want %v", c.lexeme, n.Value, c.wantVal)
		}
		if n.Unit != c.wantUnit {
			t.Errorf("ReadNum(%q).Unit = %q, want %q", c.lexeme, n.Unit, c.wantUnit)
		}
	}
}

func TestReadNumSpecials(t *testing.T) {
	if n, err := ReadNum("NaN"); err != nil || n != NumNaN {
		t.Errorf("ReadNum(NaN) = %v, %v; want NumNaN, nil", n, err)
	}
	if n, err := ReadNum("INF"); err != nil || n != NumPosInf {
		t.Errorf("ReadNum(INF) = %v, %v; want NumPosInf, nil", n, err)
	}
	if n, err := ReadNum("-INF"); err != nil || n != NumNegInf {
		t.Errorf("ReadNum(-INF) = %v, %v; want NumNegInf, nil", n, err)
	}
}

func TestReadNumHex(t *testing.T) {
	n, err := ReadNum("0xFF")
	if err != nil {
		t.Fatalf("ReadNum(0xFF): %v", err)
	}
	if n.Value != 255 {
		t.Errorf("ReadNum(0xFF).Value = %v, want 255", n.Value)
	}
	if _, err := ReadNum("0x"); err == nil {
		t.Error("expected error for incomplete hex number")
	}
}

func TestReadStrEscapes(t *testing.T) {
	s, err := ReadStr(`"line1\nline2\ttab"`)
	if err != nil {
		t.Fatalf("ReadStr: %v", err)
	}
	if s.Value != "line1\nline2\ttab" {
		t.Errorf("ReadStr decoded = %q, want %q", s.Value, "line1\nline2\ttab")
	}
}

func TestReadStrUnicodeEscape(t *testing.T) {
	s, err := ReadStr(`"\` + `u00e9"`)
	if err != nil {
		t.Fatalf("ReadStr: %v", err)
	}
	if s.Value != "é" {
		t.Errorf("ReadStr(\\u00e9) = %q, want %q", s.Value, "é")
	}
}

func TestReadUriBacktickEscape(t *testing.T) {
	u, err := ReadUri("`a\\`b`")
	if err != nil {
		t.Fatalf("ReadUri: %v", err)
	}
	if u.Value != "a`b" {
		t.Errorf("ReadUri = %q, want %q", u.Value, "a`b")
	}
}

func TestReadDate(t *testing.T) {
	d, err := ReadDate("2010-03-11")
	if err != nil {
		t.Fatalf("ReadDate: %v", err)
	}
	if d.Year != 2010 || d.Month != 3 || d.Day != 11 {
		t.Errorf("got %+v", d)
	}
}

func TestReadTimeFraction(t *testing.T) {
	tm, err := ReadTime("23:55:00.123")
	if err != nil {
		t.Fatalf("ReadTime: %v", err)
	}
	if tm.Hour != 23 || tm.Min != 55 || tm.Sec != 0 || tm.Nanosecond != 123000000 {
		t.Errorf("got %+v", tm)
	}
}

func TestReadDateTimeWithZone(t *testing.T) {
	dt, err := ReadDateTime("2010-03-11T23:55:00-05:00 New_York")
	if err != nil {
		t.Fatalf("ReadDateTime: %v", err)
	}
	if dt.Year != 2010 || dt.Month != 3 || dt.Day != 11 {
		t.Errorf("date part = %+v", dt)
	}
	if dt.Hour != 23 || dt.Min != 55 || dt.Sec != 0 {
		t.Errorf("time part = %+v", dt)
	}
	if dt.OffsetSeconds != -5*3600 {
		t.Errorf("OffsetSeconds = %d, want %d", dt.OffsetSeconds, -5*3600)
	}
	if dt.Zone != "New_York" {
		t.Errorf("Zone = %q, want %q", dt.Zone, "New_York")
	}
}

func TestReadDateTimeUTC(t *testing.T) {
	dt, err := ReadDateTime("2010-03-11T23:55:00Z")
	if err != nil {
		t.Fatalf("ReadDateTime: %v", err)
	}
	if dt.OffsetSeconds != 0 || dt.Zone != "" {
		t.Errorf("got %+v", dt)
	}
}

func TestReadSymbol(t *testing.T) {
	sym, err := ReadSymbol("^elec-meter")
	if err != nil {
		t.Fatalf("ReadSymbol: %v", err)
	}
	if sym.ID != "elec-meter" {
		t.Errorf("ID = %q, want %q", sym.ID, "elec-meter")
	}
}

func TestReadRefTrailingSpace(t *testing.T) {
	r, err := ReadRef("@abc:123 ")
	if err != nil {
		t.Fatalf("ReadRef: %v", err)
	}
	if r.ID != "abc:123" {
		t.Errorf("ID = %q, want %q", r.ID, "abc:123")
	}
}

func TestReadRefContentAfterTrailingSpaceFails(t *testing.T) {
	if _, err := ReadRef("@abc 123"); err == nil {
		t.Fatal("expected error for content after a ref's trailing space")
	}
}

func TestReadBinMime(t *testing.T) {
	b, err := ReadBinMime("text/plain")
	if err != nil {
		t.Fatalf("ReadBinMime: %v", err)
	}
	if b.Mime != "text/plain" {
		t.Errorf("Mime = %q, want %q", b.Mime, "text/plain")
	}
	if _, err := ReadBinMime("not-a-mime-type"); err == nil {
		t.Fatal("expected error for a MIME string with no '/'")
	}
}
