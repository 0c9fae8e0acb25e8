package speech

import (
	"strings"
	"testing"
)

func TestSegment_PacksParagraphsUpToLimit(t *testing.T) {
	got := Segment("aaa\n\nbbb\n\nccc", 8)
	want := []string{"aaa\n\nbbb", "ccc"}
	if len(got) != len(want) {
		t.Fatalf("expected %d segments, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSegment_OversizeParagraphSplitsAtSentences(t *testing.T) {
	para := "First sentence here. Second sentence here. Third one."
	got := Segment(para, 25)

	if len(got) != 3 {
		t.Fatalf("expected 3 segments, got %d: %v", len(got), got)
	}
	for i, seg := range got {
		if len(seg) > 25 {
			t.Errorf("segment %d exceeds limit: %d bytes", i, len(seg))
		}
	}
	if got[0] != "First sentence here." {
		t.Errorf("expected first sentence, got %q", got[0])
	}
}

func TestSegment_HardCutsGiantSentence(t *testing.T) {
	giant := strings.Repeat("ab", 30)
	got := Segment(giant, 25)

	var rejoined strings.Builder
	for i, seg := range got {
		if len(seg) > 25 {
			t.Errorf("segment %d exceeds limit: %d bytes", i, len(seg))
		}
		rejoined.WriteString(seg)
	}
	if rejoined.String() != giant {
		t.Error("hard cut lost or reordered text")
	}
}

func TestSegment_JapaneseSentenceBoundaries(t *testing.T) {
	text := "これは文です。次の文です。"
	got := Segment(text, 21)

	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %d: %v", len(got), got)
	}
	if got[0] != "これは文です。" || got[1] != "次の文です。" {
		t.Errorf("unexpected segments: %v", got)
	}
}

func TestSegment_EmptyInput(t *testing.T) {
	if got := Segment("", 100); len(got) != 0 {
		t.Errorf("expected no segments, got %v", got)
	}
	if got := Segment("\n\n  \n\n", 100); len(got) != 0 {
		t.Errorf("expected no segments for whitespace, got %v", got)
	}
}

func TestSegment_ZeroLimitUsesDefault(t *testing.T) {
	got := Segment("short text", 0)
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("expected single segment, got %v", got)
	}
}

func TestSplitSentences_RequiresSpaceAfterLatinTerminator(t *testing.T) {
	got := splitSentences("Pi is 3.14 roughly. Euler agreed.")
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %v", len(got), got)
	}
	if got[0] != "Pi is 3.14 roughly." {
		t.Errorf("decimal split a sentence: %q", got[0])
	}
}
