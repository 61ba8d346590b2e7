package db

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"github.com/jsphweid/amtdata/model"
)

// NewClient connects to DynamoDB. An empty endpoint uses the AWS default for
// the region; local development points it at http://localhost:8000.
func NewClient(region, endpoint string) (dynamodbiface.DynamoDBAPI, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create a DynamoDB session: %w", err)
	}
	return dynamodb.New(sess), nil
}

// GetItems pages through every item of split. The table is keyed by split
// (partition) and name (sort), so items come back in name order.
func GetItems(ctx aws.Context, client dynamodbiface.DynamoDBAPI, table, split string) ([]model.Item, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(table),
		KeyConditionExpression: aws.String("#split = :split"),
		ExpressionAttributeNames: map[string]*string{
			"#split": aws.String("split"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":split": {S: aws.String(split)},
		},
	}

	var res []model.Item
	var parseErr error
	err := client.QueryPagesWithContext(ctx, input, func(page *dynamodb.QueryOutput, lastPage bool) bool {
		for _, v := range page.Items {
			item, err := toItem(v)
			if err != nil {
				parseErr = err
				return false
			}
			res = append(res, item)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("error from DynamoDB: %w", err)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return res, nil
}

func toItem(v map[string]*dynamodb.AttributeValue) (model.Item, error) {
	str := func(key string) (string, error) {
		attr, ok := v[key]
		if !ok || attr.S == nil {
			return "", fmt.Errorf("item is missing string attribute %q", key)
		}
		return *attr.S, nil
	}
	var s model.Item
	var err error
	if s.Name, err = str("name"); err != nil {
		return s, err
	}
	if s.Split, err = str("split"); err != nil {
		return s, err
	}
	if s.AudioPath, err = str("audio_path"); err != nil {
		return s, err
	}
	if s.MidiPath, err = str("midi_path"); err != nil {
		return s, err
	}
	return s, nil
}
