package app

import (
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/kinocal/internal/domain"
)

var testNow = time.Date(2025, time.March, 10, 14, 30, 0, 0, time.Local)

func TestMaterializeExcludedCountry(t *testing.T) {
	m := &domain.MovieSummary{
		Title:     "Холоп",
		Countries: []string{"Россия"},
	}
	if ev := Materialize(m, []string{"Россия"}, testNow); ev != nil {
		t.Fatalf("命中排除国家应返回 nil，实际 %+v", ev)
	}
}

func TestMaterializeCaseSensitiveMatch(t *testing.T) {
	// 精确匹配区分大小写："россия" 不等于 "Россия"。
	m := &domain.MovieSummary{
		Title:     "Холоп",
		Countries: []string{"россия"},
	}
	if ev := Materialize(m, []string{"Россия"}, testNow); ev == nil {
		t.Fatal("大小写不同的国家不应被排除")
	}
}

func TestMaterializeWithShowDateAndTime(t *testing.T) {
	m := &domain.MovieSummary{
		Title:           "Интерстеллар",
		DetailURL:       "https://example.com/movie/interstellar/",
		Times:           []string{"09:30", "18:00"},
		Countries:       []string{"США", "Великобритания"},
		NearestShowDate: time.Date(2025, time.March, 15, 0, 0, 0, 0, time.Local),
	}

	ev := Materialize(m, []string{"Россия"}, testNow)
	if ev == nil {
		t.Fatal("不应被排除")
	}

	wantStart := time.Date(2025, time.March, 15, 9, 30, 0, 0, time.Local)
	if !ev.Start.Equal(wantStart) {
		t.Fatalf("开始时刻错误：%v，期望 %v", ev.Start, wantStart)
	}
	if !ev.End.Equal(wantStart.Add(2 * time.Hour)) {
		t.Fatalf("结束时刻应为开始 +2h：%v", ev.End)
	}

	lines := strings.Split(ev.Description, "\n")
	want := []string{
		"Фильм: Интерстеллар",
		"Страна: США, Великобритания",
		"Сеансы: 09:30, 18:00",
		"Ближайший показ: 15.03.2025",
		"Дата события: 15.03.2025 09:30",
		"Источник: https://example.com/movie/interstellar/",
	}
	if len(lines) != len(want) {
		t.Fatalf("描述行数错误：%v", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("描述第 %d 行错误：%q，期望 %q", i+1, lines[i], want[i])
		}
	}
}

func TestMaterializeDefaultsTomorrowEvening(t *testing.T) {
	// 无排片日期、无场次时间：明天 19:00。
	m := &domain.MovieSummary{Title: "Дюна"}

	ev := Materialize(m, nil, testNow)
	if ev == nil {
		t.Fatal("不应被排除")
	}
	wantStart := time.Date(2025, time.March, 11, 19, 0, 0, 0, time.Local)
	if !ev.Start.Equal(wantStart) {
		t.Fatalf("默认开始时刻错误：%v，期望 %v", ev.Start, wantStart)
	}

	// 缺失的数据行不出现：只有标题与事件时间两行。
	lines := strings.Split(ev.Description, "\n")
	if len(lines) != 2 || lines[0] != "Фильм: Дюна" {
		t.Fatalf("描述错误：%v", lines)
	}
}

func TestMaterializeTruncatesLists(t *testing.T) {
	m := &domain.MovieSummary{
		Title:     "Сборник",
		Countries: []string{"a", "b", "c", "d"},
		Times:     []string{"10:00", "11:00", "12:00", "13:00", "14:00", "15:00"},
	}

	ev := Materialize(m, nil, testNow)
	if ev == nil {
		t.Fatal("不应被排除")
	}
	if !strings.Contains(ev.Description, "Страна: a, b, c\n") {
		t.Fatalf("国家应只列前 3 个：%q", ev.Description)
	}
	if !strings.Contains(ev.Description, "Сеансы: 10:00, 11:00, 12:00, 13:00, 14:00\n") {
		t.Fatalf("场次应只列前 5 个：%q", ev.Description)
	}
}
