package log

// PrefixLogger writes to the underlying log, but all messages are prefixed with a string of your choice.
// The pipeline uses one per scene, so that interleaved output from scene workers stays readable.
type PrefixLogger struct {
	Log    Log
	Prefix string
}

// Create a new PrefixLogger
func NewPrefixLogger(log Log, prefix string) *PrefixLogger {
	return NewPrefixLoggerNoSpace(log, prefix+" ")
}

// Create a new PrefixLogger, but don't add a space onto 'prefix'
func NewPrefixLoggerNoSpace(log Log, prefix string) *PrefixLogger {
	return &PrefixLogger{
		Log:    log,
		Prefix: prefix,
	}
}

// Close does nothing. The underlying log is owned by whoever created it.
func (l *PrefixLogger) Close() {
}

// The prefix goes in as an argument, so a '%' in it is printed verbatim
func (l *PrefixLogger) args(a []interface{}) []interface{} {
	return append([]interface{}{l.Prefix}, a...)
}

func (l *PrefixLogger) Debugf(format string, a ...interface{}) {
	l.Log.Debugf("%v"+format, l.args(a)...)
}

func (l *PrefixLogger) Infof(format string, a ...interface{}) {
	l.Log.Infof("%v"+format, l.args(a)...)
}

func (l *PrefixLogger) Warnf(format string, a ...interface{}) {
	l.Log.Warnf("%v"+format, l.args(a)...)
}

func (l *PrefixLogger) Errorf(format string, a ...interface{}) {
	l.Log.Errorf("%v"+format, l.args(a)...)
}

func (l *PrefixLogger) Criticalf(format string, a ...interface{}) {
	l.Log.Criticalf("%v"+format, l.args(a)...)
}
