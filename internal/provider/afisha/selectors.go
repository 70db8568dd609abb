package afisha

import "time"

// 本文件集中全部选择器表与正则表。
//
// 对外部站点的结构耦合只允许出现在这里：站点改版时只改表，不动控制流。
// 两类回退语义并存，注意区分：
// - 列表提取：first-match-wins（命中一个选择器后，后面的全部忽略）
// - 详情国家提取：union（所有选择器的命中结果取并集）

// listingContainerSelectors 是“影片容器”的候选选择器（按优先级排列）。
var listingContainerSelectors = []string{
	".movie-item",
	".film-item",
	".schedule-item",
	"[data-movie]",
	".movie",
	".film",
	"article",
	".content-item",
	".list-item",
	".cinema-movie",
	".schedule-movie",
	".event-item",
	".item",
}

// titleSelectors 在单个容器内探测标题（标题类标签 → 通用类名 → 链接 → 强调文本）。
var titleSelectors = []string{"h1", "h2", "h3", ".title", ".name", "a", "strong"}

// linkFallbackTokens：所有容器选择器都落空时，按链接路径里的标识词兜底。
var linkFallbackTokens = []string{"movie", "film"}

// probeContentSelectors 是分页探测用的通用“内容块”选择器。
var probeContentSelectors = []string{".movie", ".film", ".schedule", ".cinema", "article"}

// countrySelectors 是详情页国家信息的选择器（union 语义）。
// 部分选择器会误中元数据标签，靠 countryLabelDenylist 过滤。
var countrySelectors = []string{
	`[data-test="ITEM-META"] a`,
	".country",
	".film-country",
	".movie-country",
	`span:contains("Страна")`,
	".meta-info",
	".film-meta",
}

// countryLabelDenylist：命中这些词的文本是元数据标签，不是国家名。
var countryLabelDenylist = []string{"жанр", "режиссер", "актер", "год", "время"}

// 排片日历挂件：结构类名 → 无障碍标签 → 通用类名。
var calendarWidgetSelectors = []string{
	".EyErB",
	`[aria-label="Календарь"]`,
	".calendar",
	".schedule-calendar",
}

const (
	// activeDateSelector 标记“可购票日期”的链接（disabled 日期是 button，不会命中）。
	activeDateSelector = "a.pdT6c"
	// dayNumberSelector 是日期链接内嵌的“几号”元素。
	dayNumberSelector = ".YCVqY"
)

// timeElementSelectors 是详情页场次时间的元素选择器（union 语义）。
var timeElementSelectors = []string{
	".showtime",
	".session-time",
	".time",
	"[data-time]",
	".screening-time",
}

// monthTokens 把无障碍标签里的俄语月份（属格）映射到月份序数。
var monthTokens = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}
