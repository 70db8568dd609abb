// Package ics 把日历事件序列编码为 iCalendar（RFC 5545）字节流。
//
// 只实现本工具需要的子集：VCALENDAR/VEVENT、文本转义、75 字节折行。
// 时间语义刻意用“本地悬浮时间”（不带 TZID/Z 后缀）：影院场次
// 就是放映地的本地时刻，跟随导入方日历的时区设置。
package ics

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/John-Robertt/kinocal/internal/domain"
)

const (
	prodID = "-//kinocal//kinocal//RU"

	// RFC 5545 §3.1：内容行不超过 75 octets，续行以单个空格开头。
	maxLineOctets = 75

	stampLayout    = "20060102T150405Z"
	floatingLayout = "20060102T150405"
)

// Encode 编码事件序列。事件为空时输出空日历（合法产物，非错误）。
// now 用于 DTSTAMP（统一取编码时刻，保证同一次运行内产物一致）。
func Encode(events []domain.CalendarEvent, now time.Time) []byte {
	var buf bytes.Buffer
	stamp := now.UTC().Format(stampLayout)

	writeLine(&buf, "BEGIN:VCALENDAR")
	writeLine(&buf, "VERSION:2.0")
	writeLine(&buf, "PRODID:"+prodID)
	writeLine(&buf, "CALSCALE:GREGORIAN")

	for i := range events {
		ev := &events[i]
		writeLine(&buf, "BEGIN:VEVENT")
		writeLine(&buf, "UID:"+uid(ev))
		writeLine(&buf, "DTSTAMP:"+stamp)
		writeLine(&buf, "DTSTART:"+ev.Start.Format(floatingLayout))
		writeLine(&buf, "DTEND:"+ev.End.Format(floatingLayout))
		writeLine(&buf, "SUMMARY:"+escapeText(ev.Name))
		if ev.Description != "" {
			writeLine(&buf, "DESCRIPTION:"+escapeText(ev.Description))
		}
		if ev.URL != "" {
			// URL 属性值是 URI 而非 TEXT（RFC 5545 §3.8.4.6），不做反斜杠转义。
			writeLine(&buf, "URL:"+ev.URL)
		}
		writeLine(&buf, "END:VEVENT")
	}

	writeLine(&buf, "END:VCALENDAR")
	return buf.Bytes()
}

// uid 由事件身份（名称 + 开始时刻）推导，保证重复运行产生稳定 UID，
// 导入方日历据此做更新而不是重复创建。
func uid(ev *domain.CalendarEvent) string {
	sum := sha1.Sum([]byte(ev.Name + "|" + ev.Start.Format(floatingLayout)))
	return hex.EncodeToString(sum[:]) + "@kinocal"
}

// escapeText 按 RFC 5545 §3.3.11 转义 TEXT 值。
func escapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case ';':
			b.WriteString(`\;`)
		case ',':
			b.WriteString(`\,`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			// 单独的 CR 丢弃（\r\n 的 \n 分支已覆盖换行）
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// writeLine 写出一条内容行：超长时按 75 octets 折行（UTF-8 安全），
// 行尾一律 CRLF。
func writeLine(buf *bytes.Buffer, line string) {
	b := []byte(line)
	first := true
	for len(b) > 0 {
		limit := maxLineOctets
		if !first {
			limit-- // 续行的前导空格占 1 octet
		}
		n := splitAt(b, limit)
		if !first {
			buf.WriteByte(' ')
		}
		buf.Write(b[:n])
		buf.WriteString("\r\n")
		b = b[n:]
		first = false
	}
	if first {
		// 空行（理论上不会出现，防御空输入）
		buf.WriteString("\r\n")
	}
}

// splitAt 返回 ≤limit 且不切断 UTF-8 序列的最大前缀长度。
func splitAt(b []byte, limit int) int {
	if len(b) <= limit {
		return len(b)
	}
	n := limit
	// 退到 UTF-8 序列边界（首字节或 ASCII）。
	for n > 0 && b[n]&0xC0 == 0x80 {
		n--
	}
	if n == 0 {
		return limit
	}
	return n
}
