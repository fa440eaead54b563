// Package logging provides structured logging for godesk.
//
// It wraps a global zap logger. Logging is silent unless a level is given
// explicitly or through the GODESK_LOG_LEVEL environment variable, so CLI
// output stays clean by default.
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Wire payloads can be dumped at debug level:
//
//	logging.LogRawBytes("height read", buf)
package logging
