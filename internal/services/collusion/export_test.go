package collusion

var TermCounts = termCounts
