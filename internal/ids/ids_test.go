package ids

import "testing"

func TestComposeParseRoundTrip(t *testing.T) {
	cases := []struct {
		cid, bid, offset uint32
	}{
		{0, 0, 0},
		{3, 0xABCDE, 0xDEADBEEF},
		{255, 1<<24 - 1, 1<<32 - 1},
		{1, 2, 3},
	}
	for _, c := range cases {
		got := Compose(c.cid, c.bid, c.offset)
		cid, bid, offset := Parse(got)
		if cid != c.cid || bid != c.bid || offset != c.offset {
			t.Fatalf("Parse(Compose(%d,%d,%d)) = (%d,%d,%d)", c.cid, c.bid, c.offset, cid, bid, offset)
		}
	}
}

func TestComposeScenario(t *testing.T) {
	got := Compose(3, 0xABCDE, 0xDEADBEEF)
	cid, bid, offset := Parse(got)
	if cid != 3 || bid != 0xABCDE || offset != 0xDEADBEEF {
		t.Fatalf("unexpected decomposition: (%x,%x,%x)", cid, bid, offset)
	}
}

func TestComposeBlockParseRoundTrip(t *testing.T) {
	cases := []struct{ cid, bid uint32 }{
		{0, 0},
		{255, 1<<24 - 1},
		{7, 12345},
	}
	for _, c := range cases {
		got := ComposeBlock(c.cid, c.bid)
		cid, bid := ParseBlock(got)
		if cid != c.cid || bid != c.bid {
			t.Fatalf("ParseBlock(ComposeBlock(%d,%d)) = (%d,%d)", c.cid, c.bid, cid, bid)
		}
	}
}
