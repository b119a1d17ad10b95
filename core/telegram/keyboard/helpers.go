// Package keyboard builds inline keyboards whose buttons carry raw action
// tokens in their callback data.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is one inline button. Exactly one of Data or URL is used; URL wins.
type InlineBtn struct {
	Text string
	Data string
	URL  string
}

// Btn is shorthand for a callback button.
func Btn(text, data string) InlineBtn {
	return InlineBtn{Text: text, Data: data}
}

// Link is shorthand for a URL button.
func Link(text, url string) InlineBtn {
	return InlineBtn{Text: text, URL: url}
}

// Rows accumulates keyboard rows. The zero value is an empty keyboard.
type Rows [][]InlineBtn

// Add appends a row, skipping empty ones.
func (r *Rows) Add(btns ...InlineBtn) {
	if len(btns) == 0 {
		return
	}
	*r = append(*r, btns)
}

// Chunk appends buttons split into rows of up to n.
func (r *Rows) Chunk(btns []InlineBtn, n int) {
	for _, row := range ChunkButtons(btns, n) {
		r.Add(row...)
	}
}

// Markup converts the rows into telebot markup; nil when there are no rows.
func (r Rows) Markup() *tele.ReplyMarkup {
	if len(r) == 0 {
		return nil
	}
	return InlineButtonsRows(r...)
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tele.InlineButton, 0, len(row))
		for _, btn := range row {
			ib := tele.InlineButton{Text: btn.Text}
			if btn.URL != "" {
				ib.URL = btn.URL
			} else {
				ib.Data = btn.Data
			}
			r = append(r, ib)
		}
		inline = append(inline, r)
	}
	markup.InlineKeyboard = inline
	return markup
}

// ChunkButtons splits a flat list of buttons into rows with up to n buttons per row.
func ChunkButtons(buttons []InlineBtn, n int) [][]InlineBtn {
	if n <= 1 {
		n = 1
	}
	rows := make([][]InlineBtn, 0, (len(buttons)+n-1)/n)
	for i := 0; i < len(buttons); i += n {
		end := min(i+n, len(buttons))
		rows = append(rows, buttons[i:end])
	}
	return rows
}
