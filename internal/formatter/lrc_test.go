package formatter

import (
	"testing"
	"time"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestParseTimestamp(t *testing.T) {
	tc := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "01:02", want: ms(62_000)},
		{in: "01:02.5", want: ms(62_500)},
		{in: "01:02.50", want: ms(62_500)},
		{in: "01:02.505", want: ms(62_505)},
		{in: "1:00:00.00", want: time.Hour},
		{in: "1:02:03.5", want: time.Hour + ms(123_500)},
		{in: "00:05:50", want: ms(5_500)},
		{in: "01:02:05", want: ms(62_050)},
		{in: "00:05:5", want: 5*time.Minute + 5*time.Second},
		{in: "00:61:50", wantErr: true},
		{in: "12:61.00", wantErr: true},
		{in: "aa:bb", wantErr: true},
		{in: "01:02.5050", wantErr: true},
		{in: "01", wantErr: true},
		{in: "-1:00", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLRC(t *testing.T) {
	t.Run("Basic Lines", func(t *testing.T) {
		raw := "[00:00.00]a\n[00:05.00]b\n[00:10.00]c\n"
		tr, dropped := ParseLRC(raw)

		if dropped != 0 {
			t.Errorf("expected no dropped lines, got %d", dropped)
		}
		if tr.Len() != 3 || !tr.Synced {
			t.Fatalf("unexpected transcript %+v", tr)
		}
		if tr.Lines[1].Start != ms(5000) || tr.Lines[1].Text != "b" {
			t.Errorf("unexpected second line %+v", tr.Lines[1])
		}
	})

	t.Run("Metadata Tags Are Skipped", func(t *testing.T) {
		raw := "[ar:Artist]\n[ti:Title]\n[length:03:20]\n[00:01.00]hello"
		tr, dropped := ParseLRC(raw)

		if dropped != 0 {
			t.Errorf("metadata should not count as dropped, got %d", dropped)
		}
		if tr.Len() != 1 || tr.Lines[0].Text != "hello" {
			t.Errorf("unexpected transcript %+v", tr)
		}
	})

	t.Run("Malformed Lines Are Dropped", func(t *testing.T) {
		raw := "[00:01.00]one\nnot a lyric\n[00:xx.00]bad\n[00:03.00]three\n[00:04.00"
		tr, dropped := ParseLRC(raw)

		if dropped != 3 {
			t.Errorf("expected 3 dropped lines, got %d", dropped)
		}
		if tr.Len() != 2 {
			t.Errorf("expected 2 surviving lines, got %d", tr.Len())
		}
	})

	t.Run("All Malformed Is NoLyrics", func(t *testing.T) {
		tr, dropped := ParseLRC("just\nplain\ntext")
		if !tr.Empty() {
			t.Errorf("expected NoLyrics, got %+v", tr)
		}
		if dropped != 3 {
			t.Errorf("expected 3 dropped lines, got %d", dropped)
		}
	})

	t.Run("Repeated Timestamps And Sorting", func(t *testing.T) {
		raw := "[00:20.00][00:02.00]chorus\n[00:10.00]verse"
		tr, _ := ParseLRC(raw)

		want := []string{"chorus", "verse", "chorus"}
		if tr.Len() != len(want) {
			t.Fatalf("expected %d lines, got %d", len(want), tr.Len())
		}
		for i, w := range want {
			if tr.Lines[i].Text != w {
				t.Errorf("line %d = %q, want %q", i, tr.Lines[i].Text, w)
			}
		}
	})

	t.Run("Ties Keep Input Order", func(t *testing.T) {
		tr, _ := ParseLRC("[00:05.00]first\n[00:05.00]second")
		if tr.Lines[0].Text != "first" || tr.Lines[1].Text != "second" {
			t.Errorf("tie order not preserved: %+v", tr.Lines)
		}
	})

	t.Run("Empty Verse Placeholder", func(t *testing.T) {
		tr, _ := ParseLRC("[00:05.00]\n[00:07.00]  ")
		for _, l := range tr.Lines {
			if l.Text != "..." {
				t.Errorf("expected placeholder, got %q", l.Text)
			}
		}
	})

	t.Run("Offset Tag", func(t *testing.T) {
		tr, _ := ParseLRC("[offset:+500]\n[00:02.00]a\n[00:00.20]b")
		if tr.Lines[0].Start != 0 || tr.Lines[0].Text != "b" {
			t.Errorf("expected clamped first line, got %+v", tr.Lines[0])
		}
		if tr.Lines[1].Start != ms(1500) {
			t.Errorf("expected shifted start 1.5s, got %v", tr.Lines[1].Start)
		}
	})

	t.Run("Enhanced Word Tags Are Stripped", func(t *testing.T) {
		tr, _ := ParseLRC("[00:01.00]<00:01.00>hello <00:01.50>world\r")
		if tr.Lines[0].Text != "hello world" {
			t.Errorf("unexpected text %q", tr.Lines[0].Text)
		}
	})

	t.Run("Colon Hundredths", func(t *testing.T) {
		tr, dropped := ParseLRC("[00:05:50]colon fraction")
		if dropped != 0 || tr.Len() != 1 {
			t.Fatalf("expected one line, got %+v (dropped %d)", tr, dropped)
		}
		if tr.Lines[0].Start != ms(5_500) {
			t.Errorf("expected 5.5s, got %v", tr.Lines[0].Start)
		}
	})

	t.Run("Bracketed Text After Timestamp", func(t *testing.T) {
		tr, dropped := ParseLRC("[00:10.00][Chorus]\n[00:12.00][00:20.00][x2] la la")
		if dropped != 0 {
			t.Errorf("expected no dropped lines, got %d", dropped)
		}
		if tr.Len() != 3 {
			t.Fatalf("expected 3 lines, got %d", tr.Len())
		}
		if tr.Lines[0].Text != "[Chorus]" {
			t.Errorf("expected [Chorus] as text, got %q", tr.Lines[0].Text)
		}
		if tr.Lines[1].Text != "[x2] la la" || tr.Lines[2].Start != ms(20_000) {
			t.Errorf("unexpected repeated line %+v", tr.Lines[1:])
		}
	})
}
