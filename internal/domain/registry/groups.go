package registry

import "strconv"

// Group keys name delivery sets. A connection is bound to exactly one user
// group at registration and may join any number of topic groups afterwards.

func UserGroup(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

func TopicGroup(topicID int64) string {
	return "topic:" + strconv.FormatInt(topicID, 10)
}
