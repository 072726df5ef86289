package users

import (
	"fmt"
	"time"
)

// State is the authoritative record for one user, stored as a single
// blob under user:{id} and owned exclusively by that user's coordinator.
// Everything else in the system reads denormalized snapshots.
type State struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	Email     string    `json:"email"`
	Verifier  Verifier  `json:"verifier"`
	CreatedAt time.Time `json:"createdAt"`
	LastLogin time.Time `json:"lastLogin,omitempty"`

	Profile  Profile  `json:"profile"`
	Counters Counters `json:"counters"`
	Settings Settings `json:"settings"`

	// Relationship sets. The follow graph is stored as two directed
	// sets per user, mirrored by the service: A.Following contains B
	// iff B.Followers contains A. Every user follows itself.
	Following []string `json:"following"`
	Followers []string `json:"followers"`
	Blocked   []string `json:"blocked"`
}

// Verifier is the stored password verifier. Raw passwords never touch
// the kv tier.
type Verifier struct {
	Salt string `json:"salt"` // base64
	Hash string `json:"hash"` // base64, PBKDF2-SHA256
}

// Profile holds the user-visible fields of an account.
type Profile struct {
	DisplayName  string     `json:"displayName"`
	Bio          string     `json:"bio"`
	Location     string     `json:"location"`
	Website      string     `json:"website"`
	AvatarURL    string     `json:"avatarUrl"`
	BannerURL    string     `json:"bannerUrl"`
	JoinedAt     time.Time  `json:"joinedAt"`
	IsVerified   bool       `json:"isVerified"`
	IsAdmin      bool       `json:"isAdmin"`
	IsBanned     bool       `json:"isBanned"`
	BannedAt     *time.Time `json:"bannedAt,omitempty"`
	BannedReason string     `json:"bannedReason,omitempty"`
}

// Counters are denormalized set sizes, floored at zero.
type Counters struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
	Posts     int `json:"posts"`
}

// Settings are per-user preferences.
type Settings struct {
	EmailNotifications bool     `json:"emailNotifications"`
	PrivateAccount     bool     `json:"privateAccount"`
	MutedWords         []string `json:"mutedWords"`
}

// ProfileUpdate is a partial profile edit; nil fields are untouched.
// Handle, id, joinedAt, counters and the verified flag are immutable
// through this path.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName"`
	Bio         *string `json:"bio"`
	Location    *string `json:"location"`
	Website     *string `json:"website"`
	AvatarURL   *string `json:"avatarUrl"`
	BannerURL   *string `json:"bannerUrl"`
}

// SettingsUpdate is a partial settings edit; nil fields are untouched.
type SettingsUpdate struct {
	EmailNotifications *bool     `json:"emailNotifications"`
	PrivateAccount     *bool     `json:"privateAccount"`
	MutedWords         *[]string `json:"mutedWords"`
}

// ProfileView is the public card for a user, cached under
// profile:{handle}. Viewer-dependent fields are filled per request and
// never cached.
type ProfileView struct {
	ID             string    `json:"id"`
	Handle         string    `json:"handle"`
	DisplayName    string    `json:"displayName"`
	Bio            string    `json:"bio"`
	Location       string    `json:"location,omitempty"`
	Website        string    `json:"website,omitempty"`
	AvatarURL      string    `json:"avatarUrl,omitempty"`
	BannerURL      string    `json:"bannerUrl,omitempty"`
	JoinedAt       time.Time `json:"joinedAt"`
	IsVerified     bool      `json:"isVerified"`
	FollowerCount  int       `json:"followerCount"`
	FollowingCount int       `json:"followingCount"`
	PostCount      int       `json:"postCount"`

	IsFollowing *bool `json:"isFollowing,omitempty"`
	IsBlocked   *bool `json:"isBlocked,omitempty"`
}

// CardPage is a cursor-bounded slice of profile cards, used by the
// follower and following listings.
type CardPage struct {
	Users      []ProfileView `json:"users"`
	NextCursor string        `json:"nextCursor,omitempty"`
	HasMore    bool          `json:"hasMore"`
}

// Relations is the batched read the timeline service makes before
// assembling a page: everything needed to filter entries in one consult.
type Relations struct {
	Following  []string
	Blocked    []string
	MutedWords []string
}

// View builds the public card from authoritative state.
func (s *State) View() ProfileView {
	return ProfileView{
		ID:             s.ID,
		Handle:         s.Handle,
		DisplayName:    s.Profile.DisplayName,
		Bio:            s.Profile.Bio,
		Location:       s.Profile.Location,
		Website:        s.Profile.Website,
		AvatarURL:      s.Profile.AvatarURL,
		BannerURL:      s.Profile.BannerURL,
		JoinedAt:       s.Profile.JoinedAt,
		IsVerified:     s.Profile.IsVerified,
		FollowerCount:  s.Counters.Followers,
		FollowingCount: s.Counters.Following,
		PostCount:      s.Counters.Posts,
	}
}

// likedCap bounds the per-user recent-likes index.
const likedCap = 500

// Key builders for the user keyspace. The reservation keys are written
// during signup and read here for handle and email resolution.
func KeyUser(id string) string        { return fmt.Sprintf("user:%s", id) }
func KeyLikes(id string) string       { return fmt.Sprintf("user-likes:%s", id) }
func KeyProfile(handle string) string { return fmt.Sprintf("profile:%s", handle) }
func KeyHandle(handle string) string  { return fmt.Sprintf("handle:%s", handle) }
func KeyEmail(email string) string    { return fmt.Sprintf("email:%s", email) }
func KeyBanStatus(id string) string   { return fmt.Sprintf("ban-status:%s", id) }
