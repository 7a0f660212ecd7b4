package plurality

// Event is a parsed SP websocket semantic event: either a collection update
// (Msg == "update", Target identifies the collection) or a notification
// (Msg == "notification", Title is free text).
type Event struct {
	Msg    string `json:"msg"`
	Target string `json:"target"`
	Title  string `json:"title"`
}

// ignoredTargets is the whitelist of collections whose updates never
// represent a fronting-relevant change (spec §4.2).
var ignoredTargets = map[string]struct{}{
	"automatedReminders": {},
	"channel":            {},
	"channelCategories":  {},
	"chatMessages":       {},
	"groups":             {},
	"notes":              {},
	"polls":              {},
	"repeatedReminders":  {},
}

// RelevantlyChanged decides whether ev should trigger a FrontsResolver
// pulse. Every "notification" event is considered relevant (conservatively,
// since that is also how the friend-request-accepted notification is
// caught). An "update" event is relevant unless its target is in the
// ignore list.
func RelevantlyChanged(ev Event) bool {
	switch ev.Msg {
	case "notification":
		return true
	case "update":
		_, ignored := ignoredTargets[ev.Target]
		return !ignored
	default:
		return false
	}
}
