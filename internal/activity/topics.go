package activity

import "strconv"

const TopicSubscriptionActivity = "subscription.activity"

// Partition key = collective id, so every event of one collective keeps its order.
func PartitionKey(collectiveID int64) []byte {
	return []byte(strconv.FormatInt(collectiveID, 10))
}
