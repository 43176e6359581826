package preprocess

import "go.uber.org/zap"

// logger returns the global logger scoped to a processor name.
func logger(processor string) *zap.Logger {
	return zap.L().With(zap.String("processor", processor))
}

func zapColumn(col string) zap.Field {
	return zap.String("column", col)
}
