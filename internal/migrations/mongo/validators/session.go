package validators

import "go.mongodb.org/mongo-driver/bson"

// SessionValidator matches the document written by storage.MongoStore.
var SessionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "values", "updated_at"},
		"additionalProperties": false,
		"properties": bson.M{
			"_id": bson.M{"bsonType": "string"},
			"values": bson.M{
				"bsonType":             "object",
				"additionalProperties": bson.M{"bsonType": "string"},
			},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
