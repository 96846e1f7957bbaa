// internal/identity/identity.go
package identity

import "proxystat/internal/model"

// PlaceholderPrefix 는 이름을 끝내 알 수 없는 uuid 에 붙이는 임시 이름 접두사.
const PlaceholderPrefix = "unknown_"

// Index
// ------------------------------------------------------------
// name ↔ uuid 교차 참조 테이블.
// 계산(run) 1회 범위에서만 쓰이고 버려진다. 전역 상태로 두지 않는다.
//
// 두 값이 모두 있는 이벤트에서만 채워지며, 방향별로 "처음 본 값"이 우선한다.
type Index struct {
	nameToUUID map[string]string
	uuidToName map[string]string
}

// NewIndex builds the cross-reference maps from events carrying both name and uuid.
func NewIndex(events []model.RawEvent) *Index {
	idx := &Index{
		nameToUUID: make(map[string]string),
		uuidToName: make(map[string]string),
	}

	for _, ev := range events {
		if ev.NameRaw == "" || ev.UUIDRaw == "" {
			continue
		}
		if _, ok := idx.nameToUUID[ev.NameRaw]; !ok {
			idx.nameToUUID[ev.NameRaw] = ev.UUIDRaw
		}
		if _, ok := idx.uuidToName[ev.UUIDRaw]; !ok {
			idx.uuidToName[ev.UUIDRaw] = ev.NameRaw
		}
	}

	return idx
}

// Lookup
//
// 이벤트의 (name, uuid) 를 보정한다.
//  1. name 이 없고 uuid 가 알려져 있으면 → 교차 참조 name
//  2. uuid 가 없고 name 이 알려져 있으면 → 교차 참조 uuid
//  3. 그래도 name 이 없고 uuid 가 있으면 → "unknown_<uuid 앞 8자>"
//
// name 이 끝내 비어있으면 ok=false (이벤트 폐기 대상).
func (idx *Index) Lookup(name, uuid string) (string, string, bool) {
	if name == "" && uuid != "" {
		name = idx.uuidToName[uuid]
	}
	if uuid == "" && name != "" {
		uuid = idx.nameToUUID[name]
	}
	if name == "" && uuid != "" {
		name = placeholder(uuid)
	}
	if name == "" {
		return "", "", false
	}
	return name, uuid, true
}

// Resolve
//
// events 전체로 Index 를 만든 뒤 각 이벤트를 보정한다.
// 입력 순서는 유지되며, 이름을 정할 수 없는 이벤트는 제외된다.
// dropped 는 제외된 이벤트 수 (에러가 아니라 메트릭 용도).
func Resolve(events []model.RawEvent) (resolved []model.ResolvedEvent, dropped int) {
	idx := NewIndex(events)

	resolved = make([]model.ResolvedEvent, 0, len(events))
	for _, ev := range events {
		name, uuid, ok := idx.Lookup(ev.NameRaw, ev.UUIDRaw)
		if !ok {
			dropped++
			continue
		}
		resolved = append(resolved, model.ResolvedEvent{
			RawEvent:   ev,
			PlayerName: name,
			PlayerUUID: uuid,
		})
	}

	return resolved, dropped
}

// placeholder 는 uuid 앞 8글자(rune 기준)로 임시 이름을 만든다.
func placeholder(uuid string) string {
	r := []rune(uuid)
	if len(r) > 8 {
		r = r[:8]
	}
	return PlaceholderPrefix + string(r)
}
