// Package requestassignment contains the dispatch implementation of request
// assignment and claiming.
//
// Incoming service requests are persisted as pending, offered once to an
// automatically selected provider, and otherwise left for providers to pull.
// Every claim funnels through a single conditional store update so that
// exactly one provider ends up responsible for a request.
package requestassignment
