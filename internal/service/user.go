package service

import (
	"github.com/feldrin/quill/internal/model"
	"github.com/feldrin/quill/internal/repository"
)

type UserService struct {
	userRepository repository.UserRepository
	pictureService *PictureService
}

func NewUserService(userRepository repository.UserRepository, pictureService *PictureService) *UserService {
	return &UserService{
		userRepository: userRepository,
		pictureService: pictureService,
	}
}

func (s *UserService) ByID(id string) (*model.User, error) {
	user, err := s.userRepository.ByID(id)
	if err != nil {
		return nil, err
	}

	user.ImageURL = s.pictureService.URL(user.ImageFile)
	return user, nil
}

func (s *UserService) ByUsername(username string) (*model.User, error) {
	user, err := s.userRepository.ByUsername(username)
	if err != nil {
		return nil, err
	}

	user.ImageURL = s.pictureService.URL(user.ImageFile)
	return user, nil
}
