package service

import (
	"fmt"
	"strings"

	"github.com/everyshare/tripbot/domain"
)

// classifySystem is the classify/act mode prompt: the model both tags the
// turn's intent and, for plain turns, writes the reply in one pass.
const classifySystem = `당신은 여행 비서 챗봇입니다. 사용자의 메시지를 읽고 의도를 분류한 뒤, 아래 형식의 JSON 객체 하나만 출력하세요.

{"kind": "plain|flight|search|history", "sender": "bot", "text": "...", "slots": {...}}

분류 기준:
- "flight": 항공권 검색, 예약, 출발지/도착지/날짜 등 항공 여행 요청.
- "search": 이미지가 첨부되어 있고 그 이미지가 무엇인지 묻는 경우. text는 빈 문자열로 두세요.
- "history": 이전 대화 내용에 대한 질문 (예: "아까 말한", "이전에 찾아준").
- "plain": 그 외 모든 대화. text에 사용자의 언어로 답변을 작성하세요.

Output ONLY the JSON object.`

// flightSystem drives the slot-filling sub-dialogue. The collected slots and
// the missing fields are appended as a context note per turn.
const flightSystem = `당신은 항공권 검색 도우미입니다. 사용자의 메시지에서 항공권 검색 조건을 추출해 아래 형식의 JSON 객체 하나만 출력하세요.

{"kind": "flight", "sender": "bot", "text": "...", "slots": {"adults": 1, "origin": "...", "destination": "...", "origin_code": "...", "destination_code": "...", "departure_date": "YYYY-MM-DD"}}

규칙:
- 메시지에서 확인된 값만 slots에 넣으세요. 도시명이 확인되면 해당 IATA 공항 코드(origin_code, destination_code)도 함께 채우세요.
- 아직 비어 있는 값이 있으면 text에 그 값을 묻는 질문을 사용자의 언어로 작성하세요.
- 사용자가 항공권과 무관한 이야기를 하면 "kind"를 "plain"으로 바꿔 출력하세요. slots는 생략해도 됩니다.

Output ONLY the JSON object.`

// plainSystem is the plain-generation mode: free text out, no JSON.
const plainSystem = `당신은 친절한 여행 비서 챗봇입니다. 대화 맥락을 참고해 사용자의 언어로 자연스럽게 답변하세요.`

// historySystem answers questions about earlier conversation from retrieved
// context only.
const historySystem = `당신은 여행 비서 챗봇입니다. 아래 "참고 대화 내역"에서 찾은 내용만으로 사용자의 질문에 답변하세요. 내역에 없는 내용은 지어내지 말고, 찾을 수 없다고 답하세요.`

// notFoundText is the user-visible fallback for every tool failure.
const notFoundText = "검색된 정보가 없습니다."

// cancelledText confirms an abandoned flight sub-dialogue.
const cancelledText = "항공권 검색을 취소했습니다. 다른 도움이 필요하시면 말씀해주세요."

// slotsNote renders the collected slots for the flight chain.
func slotsNote(slots *domain.FlightSlots) string {
	if slots == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("지금까지 수집된 검색 조건:\n")
	fmt.Fprintf(&b, "adults=%d origin=%q destination=%q origin_code=%q destination_code=%q departure_date=%q\n",
		slots.Adults, slots.Origin, slots.Destination, slots.OriginCode, slots.DestinationCode, slots.DepartureDate)
	if missing := slots.Missing(); len(missing) > 0 {
		fmt.Fprintf(&b, "아직 비어 있는 값: %s", strings.Join(missing, ", "))
	}
	return b.String()
}

// searchInstruction builds the synthetic follow-up turn's text around the
// annotation report.
func searchInstruction(report string) string {
	return fmt.Sprintf(`%s
:user의 이전 질문에 위 설명(description)을 참고해서 사용자의 언어로 답변하고 url, image_url을 같이 제공해줘.
답변 예시:
이미지에 나온 위치는 '뉘하운'입니다.
가장 유사한 이미지가 있는 홈페이지: #url
가장 유사한 이미지: #image_url`, report)
}

// retrievedNote renders retrieved memory for the history answer call.
func retrievedNote(retrieved string) string {
	if retrieved == "" {
		return "참고 대화 내역: (없음)"
	}
	return "참고 대화 내역:\n" + retrieved
}

// cancelCommands end an in-progress flight sub-dialogue explicitly.
var cancelCommands = map[string]struct{}{
	"cancel":    {},
	"stop":      {},
	"취소":        {},
	"그만":        {},
	"항공권 검색 취소": {},
}

func isCancelCommand(text string) bool {
	_, ok := cancelCommands[strings.ToLower(strings.TrimSpace(text))]
	return ok
}
