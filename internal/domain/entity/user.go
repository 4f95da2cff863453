package entity

import (
	"time"
)

// User is owned by the profile service; the chat core only reads it by id.
type User struct {
	ID             string `json:"id" firestore:"id" bson:"_id"`
	Email          string `json:"email,omitempty" firestore:"email" bson:"email"`
	Name           string `json:"name" firestore:"name" bson:"name"`
	Age            int    `json:"age,omitempty" firestore:"age" bson:"age"`
	Gender         string `json:"gender,omitempty" firestore:"gender" bson:"gender"`
	JobType        string `json:"job_type,omitempty" firestore:"jobType" bson:"jobType"`
	City           string `json:"city,omitempty" firestore:"city" bson:"city"`
	Area           string `json:"area,omitempty" firestore:"area" bson:"area"`
	ContactNumber  string `json:"contact_number,omitempty" firestore:"contactNumber" bson:"contactNumber"`
	ProfilePicture string `json:"profile_picture,omitempty" firestore:"profilePicture" bson:"profilePicture"`
	Bio            string `json:"bio,omitempty" firestore:"bio" bson:"bio"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt" bson:"updatedAt"`
}

// ProfileSnapshot is the copy of a sender's profile stored on an InterestRecord.
// It never carries a contact number.
type ProfileSnapshot struct {
	Name           string `json:"name" firestore:"name" bson:"name"`
	Age            int    `json:"age,omitempty" firestore:"age" bson:"age"`
	Gender         string `json:"gender,omitempty" firestore:"gender" bson:"gender"`
	JobType        string `json:"job_type,omitempty" firestore:"jobType" bson:"jobType"`
	City           string `json:"city,omitempty" firestore:"city" bson:"city"`
	Area           string `json:"area,omitempty" firestore:"area" bson:"area"`
	ProfilePicture string `json:"profile_picture,omitempty" firestore:"profilePicture" bson:"profilePicture"`
	Bio            string `json:"bio,omitempty" firestore:"bio" bson:"bio"`
}

func (u *User) Snapshot() ProfileSnapshot {
	return ProfileSnapshot{
		Name:           u.Name,
		Age:            u.Age,
		Gender:         u.Gender,
		JobType:        u.JobType,
		City:           u.City,
		Area:           u.Area,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
	}
}

// UserSummary is the public projection of a User. ContactNumber is filled only
// when the viewer is entitled to it.
type UserSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Age            int    `json:"age,omitempty"`
	Gender         string `json:"gender,omitempty"`
	JobType        string `json:"job_type,omitempty"`
	City           string `json:"city,omitempty"`
	Area           string `json:"area,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	Bio            string `json:"bio,omitempty"`
	ContactNumber  string `json:"contact_number,omitempty"`
}

func (u *User) Summary(withContact bool) *UserSummary {
	if u == nil {
		return nil
	}
	s := &UserSummary{
		ID:             u.ID,
		Name:           u.Name,
		Age:            u.Age,
		Gender:         u.Gender,
		JobType:        u.JobType,
		City:           u.City,
		Area:           u.Area,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
	}
	if withContact {
		s.ContactNumber = u.ContactNumber
	}
	return s
}
