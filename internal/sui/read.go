package sui

import (
	"context"
)

// DefaultObjectOptions requests content and owner, as every parser needs both.
var DefaultObjectOptions = ObjectDataOptions{ShowType: true, ShowOwner: true, ShowContent: true}

// GetObject fetches a single object. A missing object is reported in the
// response's Error field, not as a Go error.
func (c *Client) GetObject(ctx context.Context, id string, opts ObjectDataOptions) (*ObjectResponse, error) {
	var resp ObjectResponse
	if err := c.callInto(ctx, "sui_getObject", []interface{}{id, opts}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetOwnedObjects fetches one page of objects owned by owner.
func (c *Client) GetOwnedObjects(ctx context.Context, owner string, query OwnedObjectsQuery, cursor *string, limit int) (*ObjectsPage, error) {
	params := []interface{}{owner, query, cursor}
	if limit > 0 {
		params = append(params, limit)
	}
	var page ObjectsPage
	if err := c.callInto(ctx, "suix_getOwnedObjects", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// QueryEvents fetches one page of emitted events.
func (c *Client) QueryEvents(ctx context.Context, q EventQuery) (*EventsPage, error) {
	var limit interface{}
	if q.Limit > 0 {
		limit = q.Limit
	}
	params := []interface{}{q.Filter, q.Cursor, limit, q.Descending}
	var page EventsPage
	if err := c.callInto(ctx, "suix_queryEvents", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
