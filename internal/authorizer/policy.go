package authorizer

const (
	// PolicyVersion is the policy language version stamped on every document.
	PolicyVersion = "2012-10-17"
	// InvokeAction is the only action policies grant or deny.
	InvokeAction = "execute-api:Invoke"
	// TokenRequestType marks a request carrying only the Authorization header.
	TokenRequestType = "TOKEN"
)

// Request is the authorizer invocation input.
type Request struct {
	Type               string `json:"type,omitempty"`
	AuthorizationToken string `json:"authorizationToken"`
	MethodARN          string `json:"methodArn"`
}

// Response is the authorizer invocation output.
type Response struct {
	PrincipalID    string            `json:"principalId"`
	PolicyDocument PolicyDocument    `json:"policyDocument"`
	Context        map[string]string `json:"context"`
}

type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

type Statement struct {
	Action   string `json:"Action"`
	Effect   Effect `json:"Effect"`
	Resource string `json:"Resource"`
}

// Policy renders d as an authorizer response.
func (d Decision) Policy() Response {
	return Response{
		PrincipalID: d.PrincipalID(),
		PolicyDocument: PolicyDocument{
			Version: PolicyVersion,
			Statement: []Statement{{
				Action:   InvokeAction,
				Effect:   d.Effect(),
				Resource: d.Resource(),
			}},
		},
		Context: d.Context(),
	}
}
