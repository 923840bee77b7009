package logging

import (
	"go.uber.org/zap"
)

// Field constructors for the keys every package logs under, so the same thing is
// always called the same name.

func Backend(name string) zap.Field { return zap.String("backend", name) }

func Operation(op string) zap.Field { return zap.String("operation", op) }

func Blob(name string) zap.Field { return zap.String("blob", name) }

func Blobs(names []string) zap.Field { return zap.Strings("blobs", names) }

func TransactionID(id int64) zap.Field { return zap.Int64("transaction_id", id) }

func GoalID(id string) zap.Field { return zap.String("goal_id", id) }

func AccountID(id string) zap.Field { return zap.String("account_id", id) }
