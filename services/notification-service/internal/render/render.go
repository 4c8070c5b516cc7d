// Package render builds the plain-text notification emails in the
// recipient's native language. Unknown languages fall back to Spanish,
// the larger side of the user base.
package render

import "fmt"

type BookingInfo struct {
	Date      string
	StartTime string
	EndTime   string
}

type Message struct {
	Subject string
	Body    string
}

func BookingCreated(lang string, b BookingInfo) Message {
	if lang == "ko" {
		return Message{
			Subject: "예약이 확정되었습니다",
			Body: fmt.Sprintf(
				"안녕하세요!\n\n%s %s~%s 화상 통화 예약이 확정되었습니다.\n시간에 맞춰 접속해 주세요.\n\nAmiko 드림",
				b.Date, b.StartTime, b.EndTime),
		}
	}
	return Message{
		Subject: "Tu reserva está confirmada",
		Body: fmt.Sprintf(
			"¡Hola!\n\nTu videollamada del %s de %s a %s está confirmada.\nPor favor conéctate a tiempo.\n\nEl equipo de Amiko",
			b.Date, b.StartTime, b.EndTime),
	}
}

func BookingCancelled(lang string, b BookingInfo) Message {
	if lang == "ko" {
		return Message{
			Subject: "예약이 취소되었습니다",
			Body: fmt.Sprintf(
				"안녕하세요.\n\n%s %s~%s 화상 통화 예약이 취소되었습니다.\n다른 시간으로 다시 예약하실 수 있습니다.\n\nAmiko 드림",
				b.Date, b.StartTime, b.EndTime),
		}
	}
	return Message{
		Subject: "Tu reserva fue cancelada",
		Body: fmt.Sprintf(
			"Hola.\n\nTu videollamada del %s de %s a %s fue cancelada.\nPuedes reservar otro horario cuando quieras.\n\nEl equipo de Amiko",
			b.Date, b.StartTime, b.EndTime),
	}
}

func Welcome(lang string) Message {
	if lang == "ko" {
		return Message{
			Subject: "Amiko에 오신 것을 환영합니다",
			Body:    "가입해 주셔서 감사합니다!\n이제 파트너를 찾아 첫 화상 통화를 예약해 보세요.\n\nAmiko 드림",
		}
	}
	return Message{
		Subject: "Bienvenido a Amiko",
		Body:    "¡Gracias por registrarte!\nYa puedes buscar un partner y reservar tu primera videollamada.\n\nEl equipo de Amiko",
	}
}
