// Package models defines server-side data models persisted in the database.
package models

import "encoding/json"

// Owner says who an album belongs to. The zero value is a shared album,
// visible to every user; use UserOwner for a per-user album.
type Owner struct {
	userID string
	owned  bool
}

// SharedOwner is the owner of global albums.
func SharedOwner() Owner { return Owner{} }

// UserOwner returns an owner bound to a user id. An empty id yields a
// shared owner.
func UserOwner(id string) Owner {
	if id == "" {
		return Owner{}
	}
	return Owner{userID: id, owned: true}
}

// IsShared reports whether the album is visible to everyone.
func (o Owner) IsShared() bool { return !o.owned }

// UserID returns the owning user id and whether there is one.
func (o Owner) UserID() (string, bool) { return o.userID, o.owned }

func (o Owner) String() string {
	if !o.owned {
		return "shared"
	}
	return "user:" + o.userID
}

// MarshalJSON encodes a shared owner as null and a user owner as its id.
func (o Owner) MarshalJSON() ([]byte, error) {
	if !o.owned {
		return []byte("null"), nil
	}
	return json.Marshal(o.userID)
}

func (o *Owner) UnmarshalJSON(b []byte) error {
	var id *string
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	if id == nil {
		*o = SharedOwner()
		return nil
	}
	*o = UserOwner(*id)
	return nil
}

// Viewer scopes album listings. AnyViewer sees every album; ViewerFor sees
// the user's own albums plus shared ones.
type Viewer struct {
	userID string
	scoped bool
}

func AnyViewer() Viewer { return Viewer{} }

func ViewerFor(userID string) Viewer {
	if userID == "" {
		return Viewer{}
	}
	return Viewer{userID: userID, scoped: true}
}

// UserID returns the scoping user id, if any.
func (v Viewer) UserID() (string, bool) { return v.userID, v.scoped }

// CanSee reports whether an album owned by o is visible to v.
func (v Viewer) CanSee(o Owner) bool {
	if !v.scoped || o.IsShared() {
		return true
	}
	id, _ := o.UserID()
	return id == v.userID
}
