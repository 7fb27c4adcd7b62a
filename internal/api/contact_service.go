package api

import (
	"context"

	"google.golang.org/grpc"

	"github.com/matheus3301/peerchat/internal/contacts"
	"github.com/matheus3301/peerchat/internal/inbox"
)

// ContactService implements peerchat.v1.ContactService.
type ContactService struct {
	dir   *contacts.Directory
	inbox *inbox.Inbox
}

// NewContactService creates a contact service over the directory.
func NewContactService(dir *contacts.Directory, in *inbox.Inbox) *ContactService {
	return &ContactService{dir: dir, inbox: in}
}

func (s *ContactService) ListContacts(_ context.Context, _ *Empty) (*ContactList, error) {
	entries := s.dir.Entries()
	resp := &ContactList{Contacts: make([]Contact, 0, len(entries))}
	for _, e := range entries {
		resp.Contacts = append(resp.Contacts, contactToAPI(e))
	}
	return resp, nil
}

// SelectContact opens peer_id's conversation, clearing its unread flag.
func (s *ContactService) SelectContact(_ context.Context, req *PeerRequest) (*Contact, error) {
	if err := s.inbox.Select(req.PeerID); err != nil {
		return nil, toStatus("select contact", err)
	}
	e, _ := s.dir.Get(req.PeerID)
	c := contactToAPI(e)
	return &c, nil
}

func contactToAPI(e contacts.Entry) Contact {
	return Contact{
		ID:       e.ID,
		Name:     e.Name,
		Label:    e.Label(),
		Unread:   e.Unread,
		Selected: e.Selected,
		Self:     e.Self,
	}
}

var contactServiceDesc = grpc.ServiceDesc{
	ServiceName: ContactServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary(ContactServiceName, "ListContacts", (*ContactService).ListContacts),
		unary(ContactServiceName, "SelectContact", (*ContactService).SelectContact),
	},
}
