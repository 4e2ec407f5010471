package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/backend"
	"github.com/vietddude/recap/internal/retrieval/failure"
)

// historyPrefix marks answers produced inside an ongoing conversation.
const historyPrefix = "💬 [對話中] "

// maxSources caps how many citations are appended to an answer.
const maxSources = 3

// kindMessages maps every failure kind to its user-facing text.
var kindMessages = map[failure.Kind]string{
	failure.KindNetwork:       "網路連線逾時，請稍後再試",
	failure.KindRateLimited:   "請求過於頻繁，請稍候再試",
	failure.KindAccessDenied:  "此網站拒絕存取，無法讀取內容",
	failure.KindNotFound:      "找不到該頁面，請確認網址是否正確",
	failure.KindServerError:   "對方伺服器發生錯誤，請稍後再試",
	failure.KindParseFailure:  "無法解析該頁面的內容",
	failure.KindQuotaExceeded: "服務額度已用盡，暫時無法使用",
	failure.KindUnknown:       "處理時發生未預期的錯誤",
}

// FormatError turns a pipeline error into the message shown to the
// user. Chain exhaustion mentions how many strategies were tried.
func FormatError(err error) string {
	if errors.Is(err, backend.ErrUnavailable) {
		return "服務暫時無法使用，請稍後再試"
	}

	var chainErr *failure.Failure
	if errors.As(err, &chainErr) {
		msg := kindMessage(chainErr.Kind)
		if chainErr.StrategiesTried > 1 {
			msg += fmt.Sprintf("（已嘗試 %d 種讀取方式）", chainErr.StrategiesTried)
		}
		return msg
	}

	return kindMessage(failure.Classify(err))
}

func kindMessage(kind failure.Kind) string {
	if msg, ok := kindMessages[kind]; ok {
		return msg
	}
	return kindMessages[failure.KindUnknown]
}

// FormatAnswer renders a conversational answer with its citations.
func FormatAnswer(answer *domain.Answer) string {
	var b strings.Builder
	if answer.HasHistory {
		b.WriteString(historyPrefix)
	}
	b.WriteString(answer.Text)

	sources := answer.Sources
	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}
	if len(sources) > 0 {
		b.WriteString("\n\n資料來源：")
		for _, src := range sources {
			b.WriteString("\n- ")
			if src.Title != "" {
				b.WriteString(src.Title)
				b.WriteString(" ")
			}
			b.WriteString(src.URI)
		}
	}
	return b.String()
}

// FormatSummary renders a delivered summary: the source URL on the
// first line, the summary below.
func FormatSummary(url, summary string) string {
	return url + "\n" + summary
}

// FormatStatus renders the /status reply.
func FormatStatus(info domain.SessionInfo, ok bool) string {
	if !ok {
		return "目前沒有進行中的對話"
	}
	return fmt.Sprintf(
		"📊 對話狀態\n訊息數：%d\n開始時間：%s\n最後活動：%s",
		info.MessageCount,
		info.CreatedAt.Format("2006-01-02 15:04"),
		info.LastActiveAt.Format("2006-01-02 15:04"),
	)
}

// FormatCleared renders the /clear reply.
func FormatCleared(removed bool) string {
	if removed {
		return "已清除對話記錄，下次傳訊息會開始新的對話"
	}
	return "目前沒有進行中的對話"
}

// FormatBookmarks renders a bookmark listing. The keyword is echoed
// when the listing is a search result.
func FormatBookmarks(bookmarks []*domain.Bookmark, keyword string) string {
	if len(bookmarks) == 0 {
		if keyword != "" {
			return fmt.Sprintf("找不到符合「%s」的書籤", keyword)
		}
		return "還沒有任何書籤，傳送網址給我就會自動收藏摘要"
	}

	var b strings.Builder
	if keyword != "" {
		fmt.Fprintf(&b, "🔖 「%s」的搜尋結果（%d 筆）", keyword, len(bookmarks))
	} else {
		fmt.Fprintf(&b, "🔖 最近的書籤（%d 筆）", len(bookmarks))
	}
	for i, bm := range bookmarks {
		title := bm.Title
		if title == "" {
			title = bm.URL
		}
		fmt.Fprintf(&b, "\n%d. %s\n   %s", i+1, title, bm.URL)
	}
	return b.String()
}
