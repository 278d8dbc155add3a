package dynamo

// DynamoDB attribute names used in keys and expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEmail        = "email"
	fieldUserID       = "user_id"
	fieldUsername     = "username"
	fieldRole         = "role"
	fieldVerified     = "verified"
	fieldUpdatedAt    = "updated_at"
	fieldPredictionID = "prediction_id"
	fieldCreatedAt    = "created_at"
)

// Secondary index names created by Bootstrap.
const (
	indexUserID       = "user_id-index"
	indexUsername     = "username-index"
	indexEmailCreated = "email-created_at-index"
)
