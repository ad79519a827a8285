// internal/domain/models/collections.go
package models

// Collection names. Every store addresses its collection through these
// constants so the full set of persisted state is visible in one place.
const (
	CollectionUsers          = "users"
	CollectionTeams          = "teams"
	CollectionInvitations    = "invitations"
	CollectionProjects       = "projects"
	CollectionTasks          = "tasks"
	CollectionMeetings       = "meetings"
	CollectionAttendance     = "attendance"
	CollectionAttendanceInfo = "attendance_info"
	CollectionMessages       = "messages"
	CollectionActivities     = "activities"
	CollectionAuditEvents    = "audit_events"
	CollectionOAuthStates    = "oauth_states"
)

// Collections lists every collection the app owns, in creation order.
var Collections = []string{
	CollectionUsers,
	CollectionTeams,
	CollectionInvitations,
	CollectionProjects,
	CollectionTasks,
	CollectionMeetings,
	CollectionAttendance,
	CollectionAttendanceInfo,
	CollectionMessages,
	CollectionActivities,
	CollectionAuditEvents,
	CollectionOAuthStates,
}
