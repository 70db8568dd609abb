package afisha

import (
	"reflect"
	"testing"
)

func TestNormalizeShowtime(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"9:30", "09:30", true},
		{"9.30", "09:30", true},
		{"18:00", "18:00", true},
		{"00:00", "00:00", true},
		{"25:61", "", false},
		{"24:00", "", false},
		{"18:65", "", false},
		{"abc", "", false},
	}
	for _, c := range cases {
		got, ok := normalizeShowtime(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("normalizeShowtime(%q)=(%q,%v)，期望 (%q,%v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestExtractTimesDedupAndOrder(t *testing.T) {
	got := extractTimes("начало 18:30, затем 18.30 и 9:00", 0, 23)
	want := []string{"18:30", "09:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("extractTimes=%v，期望 %v", got, want)
	}
}

func TestExtractTimesHourFilter(t *testing.T) {
	got := extractTimes("ночной показ 2:00, сеанс 20:00", 6, 23)
	want := []string{"20:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("extractTimes=%v，期望 %v", got, want)
	}
}

func TestMergeTimes(t *testing.T) {
	got := MergeTimes([]string{"18:30", "10:00"}, []string{"10:00", "09:15"})
	want := []string{"09:15", "10:00", "18:30"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MergeTimes=%v，期望 %v", got, want)
	}
}

func TestMergeTimesEmpty(t *testing.T) {
	if got := MergeTimes(nil, nil); len(got) != 0 {
		t.Fatalf("空输入应返回空切片，实际 %v", got)
	}
}
