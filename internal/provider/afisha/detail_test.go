package afisha

import (
	"testing"
	"time"
)

func TestParseCountriesUnionAndDenylist(t *testing.T) {
	html := `<html><body>
		<div data-test="ITEM-META"><a>США</a><a>Великобритания</a></div>
		<span class="country">США</span>
		<span class="country">Жанр: фантастика</span>
		<span class="film-meta">` + veryLongText() + `</span>
	</body></html>`

	countries, _, _ := ParseDetail(mustDoc(t, html), time.Now())
	if len(countries) != 2 {
		t.Fatalf("期望 2 个国家，实际 %v", countries)
	}
	if countries[0] != "США" || countries[1] != "Великобритания" {
		t.Fatalf("国家并集顺序错误：%v", countries)
	}
}

func veryLongText() string {
	s := ""
	for i := 0; i < 10; i++ {
		s += "очень длинное описание фильма "
	}
	return s
}

func TestParseDetailTimesFromElements(t *testing.T) {
	html := `<html><body>
		<span class="showtime">18:30</span>
		<span class="session-time">сеанс в 21.00</span>
		<span class="showtime">18:30</span>
	</body></html>`

	_, _, times := ParseDetail(mustDoc(t, html), time.Now())
	if len(times) != 2 || times[0] != "18:30" || times[1] != "21:00" {
		t.Fatalf("元素提取的场次错误：%v", times)
	}
}

func TestParseDetailTimesFullTextFallback(t *testing.T) {
	// 没有任何时间元素：退化为全文扫描，小时区间 [6,23] 过滤掉
	// 把日期 "12.04.2025" 的 "04.20" 之类的误匹配（此处用 3:00 验证下界）。
	html := `<html><body>
		<p>Сеансы сегодня: 10:00 и 22.15, техработы в 3:00</p>
	</body></html>`

	_, _, times := ParseDetail(mustDoc(t, html), time.Now())
	if len(times) != 2 || times[0] != "10:00" || times[1] != "22:15" {
		t.Fatalf("全文回退的场次错误：%v", times)
	}
}

func TestParseScheduleCalendar(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.Local)
	html := `<html><body><div class="EyErB">
		<a class="pdT6c" aria-label="20 марта, четверг"><span class="YCVqY">20</span></a>
		<a class="pdT6c" aria-label="15 марта, суббота"><span class="YCVqY">15</span></a>
		<button aria-label="11 марта"><span class="YCVqY">11</span></button>
	</div></body></html>`

	_, nearest, _ := ParseDetail(mustDoc(t, html), now)
	want := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.Local)
	if !nearest.Equal(want) {
		t.Fatalf("最近日期错误：%v，期望 %v", nearest, want)
	}
}

func TestParseScheduleCalendarYearRollover(t *testing.T) {
	// 12 月底看到 1 月的日期：挂件只展示近期未来日期，必须滚动到下一年。
	now := time.Date(2025, time.December, 28, 12, 0, 0, 0, time.Local)
	html := `<html><body><div class="calendar">
		<a class="pdT6c" aria-label="5 января, понедельник"><span class="YCVqY">5</span></a>
	</div></body></html>`

	_, nearest, _ := ParseDetail(mustDoc(t, html), now)
	want := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.Local)
	if !nearest.Equal(want) {
		t.Fatalf("跨年日期错误：%v，期望 %v", nearest, want)
	}
}

func TestParseScheduleCalendarNoMonthToken(t *testing.T) {
	// 无法识别月份词：按当前月处理。
	now := time.Date(2025, time.June, 3, 12, 0, 0, 0, time.Local)
	html := `<html><body><div class="calendar">
		<a class="pdT6c" aria-label="завтра"><span class="YCVqY">4</span></a>
	</div></body></html>`

	_, nearest, _ := ParseDetail(mustDoc(t, html), now)
	want := time.Date(2025, time.June, 4, 0, 0, 0, 0, time.Local)
	if !nearest.Equal(want) {
		t.Fatalf("无月份词的日期错误：%v，期望 %v", nearest, want)
	}
}

func TestParseScheduleCalendarOverflowDateDropped(t *testing.T) {
	now := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.Local)
	html := `<html><body><div class="calendar">
		<a class="pdT6c" aria-label="31 февраля"><span class="YCVqY">31</span></a>
	</div></body></html>`

	_, nearest, _ := ParseDetail(mustDoc(t, html), now)
	if !nearest.IsZero() {
		t.Fatalf("2 月 31 日应被丢弃，实际 %v", nearest)
	}
}

func TestParseScheduleCalendarMissingWidget(t *testing.T) {
	_, nearest, _ := ParseDetail(mustDoc(t, "<html><body></body></html>"), time.Now())
	if !nearest.IsZero() {
		t.Fatalf("无挂件时应返回零值，实际 %v", nearest)
	}
}
